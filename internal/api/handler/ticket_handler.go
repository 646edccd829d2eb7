package handler

import (
	"net/http"

	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TicketHandler serves ticket custody endpoints.
type TicketHandler struct {
	tickets *service.TicketService
	orders  *service.OrderBookService
}

// NewTicketHandler creates a TicketHandler.
func NewTicketHandler(tickets *service.TicketService, orders *service.OrderBookService) *TicketHandler {
	return &TicketHandler{tickets: tickets, orders: orders}
}

// Get godoc
// GET /api/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	info, err := h.tickets.GetTicketInfo(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch ticket")
		return
	}
	respondSuccess(c, http.StatusOK, info)
}

// Mine godoc
// GET /api/tickets/mine [JWT]
func (h *TicketHandler) Mine(c *gin.Context) {
	list, err := h.tickets.TicketsOf(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not list tickets")
		return
	}
	respondSuccess(c, http.StatusOK, list)
}

// Transfer godoc
// POST /api/tickets/:id/transfer [JWT]
// Body: {"to":"uuid"}
func (h *TicketHandler) Transfer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	to, err := uuid.Parse(body.To)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ACCOUNT", "invalid recipient account")
		return
	}

	if err := h.tickets.TransferTicket(c.Request.Context(), id, middleware.GetUserID(c), to); err != nil {
		respondDomainError(c, err, "could not transfer ticket")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"ticket_id": id, "owner": to})
}

// OrderBook godoc
// GET /api/tickets/:id/orders
func (h *TicketHandler) OrderBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.tickets.GetTicket(c.Request.Context(), id); err != nil {
		respondDomainError(c, err, "could not fetch ticket")
		return
	}
	book, err := h.orders.GetOrderBook(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch order book")
		return
	}
	respondSuccess(c, http.StatusOK, book)
}
