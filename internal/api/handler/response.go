package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Domain error mapping
// ──────────────────────────────────────────────────────────────────────────────

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrActivityNotFound, "ERR_ACTIVITY_NOT_FOUND"},
	{domain.ErrTicketNotFound, "ERR_TICKET_NOT_FOUND"},
	{domain.ErrOrderNotFound, "ERR_ORDER_NOT_FOUND"},
	{domain.ErrUserNotFound, "ERR_USER_NOT_FOUND"},
	{domain.ErrInvalidConfiguration, "ERR_INVALID_CONFIGURATION"},
	{domain.ErrInvalidDuration, "ERR_INVALID_DURATION"},
	{domain.ErrInvalidChoice, "ERR_INVALID_CHOICE"},
	{domain.ErrInvalidPrice, "ERR_INVALID_PRICE"},
	{domain.ErrInvalidAmount, "ERR_INVALID_AMOUNT"},
	{domain.ErrActivityExpired, "ERR_ACTIVITY_EXPIRED"},
	{domain.ErrNotYetExpired, "ERR_NOT_YET_EXPIRED"},
	{domain.ErrAlreadySettled, "ERR_ALREADY_SETTLED"},
	{domain.ErrOrderInactive, "ERR_ORDER_INACTIVE"},
	{domain.ErrEmailTaken, "ERR_EMAIL_TAKEN"},
	{domain.ErrUsernameTaken, "ERR_USERNAME_TAKEN"},
	{domain.ErrInsufficientBalance, "ERR_INSUFFICIENT_BALANCE"},
	{domain.ErrInsufficientAllowance, "ERR_INSUFFICIENT_ALLOWANCE"},
	{domain.ErrNotOwner, "ERR_NOT_OWNER"},
	{domain.ErrUnauthorized, "ERR_UNAUTHORIZED"},
	{domain.ErrForbidden, "ERR_FORBIDDEN"},
	{domain.ErrUserInactive, "ERR_ACCOUNT_DISABLED"},
	{domain.ErrInvalidCredentials, "ERR_INVALID_CREDENTIALS"},
	{domain.ErrTokenExpired, "ERR_TOKEN_EXPIRED"},
	{domain.ErrTokenInvalid, "ERR_INVALID_TOKEN"},
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized
	case domain.IsAuthError(err):
		return http.StatusForbidden
	case domain.IsInvalidInput(err):
		return http.StatusBadRequest
	case domain.IsStateConflict(err):
		return http.StatusConflict
	case domain.IsFundsError(err):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// respondDomainError writes the envelope for a service error. Unknown errors
// become a 500 with fallback as the message; the cause is only logged.
func respondDomainError(c *gin.Context, err error, fallback string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			respondError(c, statusFor(err), e.code, e.err.Error())
			return
		}
	}
	slog.ErrorContext(c.Request.Context(), fallback, "path", c.FullPath(), "err", err)
	respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", fallback)
}

// ──────────────────────────────────────────────────────────────────────────────
// Request parsing
// ──────────────────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

// parseID reads a non-negative sequential id from the named path parameter.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}
