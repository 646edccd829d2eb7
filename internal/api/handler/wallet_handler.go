package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
)

// WalletHandler serves balance, allowance and transaction history endpoints.
type WalletHandler struct {
	wallet *service.WalletService
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet *service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetBalance godoc
// GET /api/wallet/balance [JWT]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	view, err := h.wallet.Balance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not fetch balance")
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// Approve godoc
// POST /api/wallet/approve [JWT]
// Body: {"amount":"500"}; "0" revokes.
func (h *WalletHandler) Approve(c *gin.Context) {
	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := domain.ParseAmount(body.Amount)
	if err != nil {
		respondDomainError(c, err, "invalid amount")
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.wallet.Approve(c.Request.Context(), userID, amount); err != nil {
		respondDomainError(c, err, "could not approve")
		return
	}
	view, err := h.wallet.Balance(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err, "could not fetch balance")
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// GetTransactions godoc
// GET /api/wallet/transactions?page=1&limit=20 [JWT]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	txns, err := h.wallet.Transactions(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not fetch transactions")
		return
	}
	respondList(c, txns, len(txns), page, limit)
}
