package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves the resale order book.
type OrderHandler struct {
	orders *service.OrderBookService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders *service.OrderBookService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListActive godoc
// GET /api/orders?page=1&limit=20
func (h *OrderHandler) ListActive(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	list, err := h.orders.ListActiveOrders(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list orders")
		return
	}
	respondList(c, list, len(list), page, limit)
}

// Get godoc
// GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch order")
		return
	}
	respondSuccess(c, http.StatusOK, o)
}

// Create godoc
// POST /api/orders [JWT]
// Body: {"ticket_id":0,"price":"60"}
func (h *OrderHandler) Create(c *gin.Context) {
	var body struct {
		TicketID *int64 `json:"ticket_id" binding:"required"`
		Price    string `json:"price"     binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	price, err := domain.ParseAmount(body.Price)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", domain.ErrInvalidPrice.Error())
		return
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), *body.TicketID, price, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not create order")
		return
	}
	respondSuccess(c, http.StatusCreated, o)
}

// Fill godoc
// POST /api/orders/:id/fill [JWT]
func (h *OrderHandler) Fill(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.FillOrder(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not fill order")
		return
	}
	respondSuccess(c, http.StatusOK, o)
}

// Cancel godoc
// POST /api/orders/:id/cancel [JWT, seller only]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.CancelOrder(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not cancel order")
		return
	}
	respondSuccess(c, http.StatusOK, o)
}
