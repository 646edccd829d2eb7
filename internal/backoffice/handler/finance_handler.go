package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FinanceHandler serves /admin/finance endpoints.
type FinanceHandler struct {
	activities *service.ActivityService
	wallet     *service.WalletService
	escrow     uuid.UUID
}

// NewFinanceHandler creates a FinanceHandler for the given escrow account.
func NewFinanceHandler(
	activities *service.ActivityService,
	wallet *service.WalletService,
	escrow uuid.UUID,
) *FinanceHandler {
	return &FinanceHandler{activities: activities, wallet: wallet, escrow: escrow}
}

// Report godoc
// GET /admin/finance/report
// Reconciles the escrow balance against the pools it is supposed to hold.
func (h *FinanceHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()

	escrow, err := h.wallet.EscrowBalance(ctx)
	if err != nil {
		respondDomainError(c, err, "could not read escrow balance")
		return
	}
	totals, err := h.activities.Totals(ctx)
	if err != nil {
		respondDomainError(c, err, "could not total pools")
		return
	}

	expected := totals.Unsettled.Add(totals.Residual)
	respondSuccess(c, http.StatusOK, gin.H{
		"generated_at":    h.activities.Now(),
		"escrow_account":  h.escrow,
		"escrow_balance":  escrow,
		"unsettled_pools": totals.Unsettled,
		"distributed":     totals.Distributed,
		"residual":        totals.Residual,
		"expected":        expected,
		"difference":      escrow.Sub(expected),
		"balanced":        escrow.Equal(expected),
	})
}

// Transactions godoc
// GET /admin/finance/transactions?page=1&limit=50
// Lists every ledger movement touching the escrow account.
func (h *FinanceHandler) Transactions(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	txns, err := h.wallet.Transactions(c.Request.Context(), h.escrow, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list transactions")
		return
	}
	respondList(c, txns, len(txns), page, limit)
}
