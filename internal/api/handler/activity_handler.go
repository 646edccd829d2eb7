package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
)

// maxDurationSeconds is the longest duration a time.Duration can hold.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// ActivityHandler serves the activity registry, ticket purchase and
// settlement endpoints.
type ActivityHandler struct {
	activities *service.ActivityService
	tickets    *service.TicketService
	settlement *service.SettlementService
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(activities *service.ActivityService, tickets *service.TicketService, settlement *service.SettlementService) *ActivityHandler {
	return &ActivityHandler{activities: activities, tickets: tickets, settlement: settlement}
}

// List godoc
// GET /api/activities?page=1&limit=20
func (h *ActivityHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	list, total, err := h.activities.ListActivities(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list activities")
		return
	}
	now := h.activities.Now()
	out := make([]domain.ActivitySummary, 0, len(list))
	for _, a := range list {
		out = append(out, a.ToSummary(now))
	}
	respondList(c, out, int(total), page, limit)
}

// Count godoc
// GET /api/activities/count
func (h *ActivityHandler) Count(c *gin.Context) {
	n, err := h.activities.ActivityCount(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "could not count activities")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"count": n})
}

// Get godoc
// GET /api/activities/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.activities.GetActivity(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch activity")
		return
	}
	respondSuccess(c, http.StatusOK, a.ToSummary(h.activities.Now()))
}

// ChoiceAmount godoc
// GET /api/activities/:id/choices/:choice/amount
func (h *ActivityHandler) ChoiceAmount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	choice, err := strconv.Atoi(c.Param("choice"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_CHOICE", domain.ErrInvalidChoice.Error())
		return
	}
	amount, err := h.activities.GetChoiceAmount(c.Request.Context(), id, choice)
	if err != nil {
		respondDomainError(c, err, "could not fetch choice amount")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"activity_id": id, "choice": choice, "amount": amount})
}

// ChoiceCount godoc
// GET /api/activities/:id/choices/:choice/count
func (h *ActivityHandler) ChoiceCount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	choice, err := strconv.Atoi(c.Param("choice"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_CHOICE", domain.ErrInvalidChoice.Error())
		return
	}
	n, err := h.activities.ChoiceCount(c.Request.Context(), id, choice)
	if err != nil {
		respondDomainError(c, err, "could not count tickets")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"activity_id": id, "choice": choice, "count": n})
}

// Tickets godoc
// GET /api/activities/:id/tickets
func (h *ActivityHandler) Tickets(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.activities.GetActivity(c.Request.Context(), id); err != nil {
		respondDomainError(c, err, "could not fetch activity")
		return
	}
	list, err := h.tickets.TicketsForActivity(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not list tickets")
		return
	}
	respondSuccess(c, http.StatusOK, list)
}

// Create godoc
// POST /api/activities [JWT]
// Body: {"name":"derby","choices":["home","away"],"odds":[150,250],"duration_seconds":3600}
func (h *ActivityHandler) Create(c *gin.Context) {
	var body struct {
		Name            string   `json:"name"             binding:"required,max=200"`
		Choices         []string `json:"choices"          binding:"required"`
		Odds            []int64  `json:"odds"             binding:"required"`
		DurationSeconds *int64   `json:"duration_seconds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if *body.DurationSeconds > maxDurationSeconds {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION",
			fmt.Sprintf("duration_seconds must not exceed %d", maxDurationSeconds))
		return
	}

	// Non-positive durations reach the domain check and fail as ErrInvalidDuration.
	a, err := h.activities.CreateActivity(c.Request.Context(), middleware.GetUserID(c),
		body.Name, body.Choices, body.Odds, time.Duration(*body.DurationSeconds)*time.Second)
	if err != nil {
		respondDomainError(c, err, "could not create activity")
		return
	}
	respondSuccess(c, http.StatusCreated, a.ToSummary(h.activities.Now()))
}

// BuyTicket godoc
// POST /api/activities/:id/tickets [JWT]
// Body: {"choice":1,"stake":"50"}
func (h *ActivityHandler) BuyTicket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Choice *int   `json:"choice" binding:"required"`
		Stake  string `json:"stake"  binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	stake, err := domain.ParseAmount(body.Stake)
	if err != nil {
		respondDomainError(c, err, "invalid stake")
		return
	}

	t, err := h.tickets.BuyTicket(c.Request.Context(), id, *body.Choice, stake, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not buy ticket")
		return
	}
	respondSuccess(c, http.StatusCreated, t)
}

// Settle godoc
// POST /api/activities/:id/settle [JWT, creator only]
// Body: {"winning_choice":1}
func (h *ActivityHandler) Settle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		WinningChoice *int `json:"winning_choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	st, err := h.settlement.Settle(c.Request.Context(), id, *body.WinningChoice, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "could not settle activity")
		return
	}
	respondSuccess(c, http.StatusOK, st)
}
