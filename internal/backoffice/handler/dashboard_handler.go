package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	activities *service.ActivityService
	wallet     *service.WalletService
	hub        *ws.Hub
}

// NewDashboardHandler creates a DashboardHandler. hub may be nil when the
// websocket feed runs in a different process.
func NewDashboardHandler(
	activities *service.ActivityService,
	wallet *service.WalletService,
	hub *ws.Hub,
) *DashboardHandler {
	return &DashboardHandler{activities: activities, wallet: wallet, hub: hub}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Activities by state ──────────────────────────────────────────────────
	counts, err := h.activities.StateCounts(ctx)
	if err != nil {
		respondDomainError(c, err, "could not count activities")
		return
	}

	// ── Escrow ───────────────────────────────────────────────────────────────
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

	// ── WS connections ────────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp": h.activities.Now(),
		"activities": gin.H{
			"open":    counts[domain.StateOpen],
			"expired": counts[domain.StateExpired],
			"settled": counts[domain.StateSettled],
			"total":   counts[domain.StateOpen] + counts[domain.StateExpired] + counts[domain.StateSettled],
		},
		"escrow_balance":  escrow,
		"unsettled_pools": totals.Unsettled,
		"residual":        totals.Residual,
		"ws_connections":  wsConnections,
	})
}
