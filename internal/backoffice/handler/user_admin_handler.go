package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	authSvc *service.AuthService
	wallet  *service.WalletService
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(authSvc *service.AuthService, wallet *service.WalletService) *UserAdminHandler {
	return &UserAdminHandler{authSvc: authSvc, wallet: wallet}
}

// List godoc
// GET /admin/users?page=1&limit=20
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	users, total, err := h.authSvc.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list users")
		return
	}
	respondList(c, users, total, page, limit)
}

// Detail godoc
// GET /admin/users/:id
func (h *UserAdminHandler) Detail(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.authSvc.GetUser(ctx, id)
	if err != nil {
		respondDomainError(c, err, "could not fetch user")
		return
	}
	wallet, err := h.wallet.Balance(ctx, id)
	if err != nil {
		respondDomainError(c, err, "could not read wallet")
		return
	}
	txns, err := h.wallet.Transactions(ctx, id, 50, 0)
	if err != nil {
		respondDomainError(c, err, "could not list transactions")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user":         user,
		"wallet":       wallet,
		"transactions": txns,
	})
}

// Suspend godoc
// POST /admin/users/:id/suspend
func (h *UserAdminHandler) Suspend(c *gin.Context) {
	h.setActive(c, false)
}

// Activate godoc
// POST /admin/users/:id/activate
func (h *UserAdminHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserAdminHandler) setActive(c *gin.Context, active bool) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if !active && middleware.GetUserID(c) == id {
		respondError(c, http.StatusConflict, "ERR_SELF_SUSPEND", "admins cannot suspend themselves")
		return
	}
	if err := h.authSvc.SetUserActive(c.Request.Context(), id, active); err != nil {
		respondDomainError(c, err, "could not update user")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": active})
}

// Credit godoc
// POST /admin/users/:id/balance
// Body: {"amount": "500", "note": "promo"}
// Mints new units into the user's account. Debits are not supported; the
// ledger only moves value through stakes, sales and payouts.
func (h *UserAdminHandler) Credit(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var body struct {
		Amount string `json:"amount" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := domain.ParseAmount(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a positive whole number")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.authSvc.GetUser(ctx, id); err != nil {
		respondDomainError(c, err, "could not fetch user")
		return
	}

	note := body.Note
	if note == "" {
		note = "Admin credit"
	}
	if err := h.wallet.Credit(ctx, id, amount, domain.TxCredit, note); err != nil {
		respondDomainError(c, err, "could not credit account")
		return
	}
	view, err := h.wallet.Balance(ctx, id)
	if err != nil {
		respondDomainError(c, err, "could not read wallet")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"user_id":     id,
		"amount":      amount,
		"new_balance": view.Balance,
	})
}

// SetRole godoc
// POST /admin/users/:id/role
// Body: {"role": "ops"}
func (h *UserAdminHandler) SetRole(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	role, valid := domain.ParseRole(body.Role)
	if !valid {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ROLE", "unknown role")
		return
	}
	if err := h.authSvc.SetUserRole(c.Request.Context(), id, role); err != nil {
		respondDomainError(c, err, "could not update role")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "role": role})
}
