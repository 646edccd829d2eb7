package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
)

// ActivityAdminHandler serves /admin/activities endpoints.
type ActivityAdminHandler struct {
	activities *service.ActivityService
	tickets    *service.TicketService
	settlement *service.SettlementService
}

// NewActivityAdminHandler creates an ActivityAdminHandler.
func NewActivityAdminHandler(
	activities *service.ActivityService,
	tickets *service.TicketService,
	settlement *service.SettlementService,
) *ActivityAdminHandler {
	return &ActivityAdminHandler{activities: activities, tickets: tickets, settlement: settlement}
}

// List godoc
// GET /admin/activities?state=open&page=1&limit=20
func (h *ActivityAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit
	ctx := c.Request.Context()

	var (
		list  []*domain.Activity
		total int
		err   error
	)
	switch state := domain.ActivityState(c.Query("state")); state {
	case "":
		var n int64
		list, n, err = h.activities.ListActivities(ctx, limit, offset)
		total = int(n)
	case domain.StateOpen, domain.StateExpired, domain.StateSettled:
		list, total, err = h.activities.ListByState(ctx, state, limit, offset)
	default:
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STATE", "state must be open, expired or settled")
		return
	}
	if err != nil {
		respondDomainError(c, err, "could not list activities")
		return
	}

	now := h.activities.Now()
	out := make([]domain.ActivitySummary, 0, len(list))
	for _, a := range list {
		out = append(out, a.ToSummary(now))
	}
	respondList(c, out, total, page, limit)
}

// Detail godoc
// GET /admin/activities/:id
func (h *ActivityAdminHandler) Detail(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	a, err := h.activities.GetActivity(ctx, id)
	if err != nil {
		respondDomainError(c, err, "could not fetch activity")
		return
	}
	tickets, err := h.tickets.TicketsForActivity(ctx, id)
	if err != nil {
		respondDomainError(c, err, "could not list tickets")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"activity":    a,
		"state":       a.StateAt(h.activities.Now()),
		"tickets":     tickets,
		"staked_sum":  a.StakedSum(),
		"distributed": a.Distributed,
	})
}

// Awaiting godoc
// GET /admin/activities/awaiting
// Lists activities past their deadline that the creator has not settled.
func (h *ActivityAdminHandler) Awaiting(c *gin.Context) {
	list, err := h.activities.ListExpiredUnsettled(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "could not list expired activities")
		return
	}
	now := h.activities.Now()
	out := make([]domain.ActivitySummary, 0, len(list))
	for _, a := range list {
		out = append(out, a.ToSummary(now))
	}
	respondSuccess(c, http.StatusOK, out)
}

// Preview godoc
// GET /admin/activities/:id/preview?choice=1
// Dry-runs settlement for a candidate winning choice without moving money.
func (h *ActivityAdminHandler) Preview(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}
	choice, err := strconv.Atoi(c.Query("choice"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "choice query parameter is required")
		return
	}
	plan, err := h.settlement.Preview(c.Request.Context(), id, choice)
	if err != nil {
		respondDomainError(c, err, "could not preview settlement")
		return
	}
	respondSuccess(c, http.StatusOK, plan)
}
