package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RiskHandler serves /admin/risk endpoints.
type RiskHandler struct {
	activities *service.ActivityService
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(activities *service.ActivityService) *RiskHandler {
	return &RiskHandler{activities: activities}
}

// choiceExposure is the payout owed if one choice wins.
type choiceExposure struct {
	Choice   int             `json:"choice"`
	Name     string          `json:"name"`
	Staked   decimal.Decimal `json:"staked"`
	Claims   decimal.Decimal `json:"claims"`
	Coverage decimal.Decimal `json:"coverage_pct"` // pool / claims × 100, capped at 100
}

type activityExposure struct {
	ActivityID int64            `json:"activity_id"`
	Name       string           `json:"name"`
	State      string           `json:"state"`
	Pool       decimal.Decimal  `json:"pool"`
	Choices    []choiceExposure `json:"choices"`
	Indicator  string           `json:"risk_indicator"`
}

// Live godoc
// GET /admin/risk/live
// Shows, for up to 100 open and 100 expired activities, how well each pool
// covers the claims of every possible winner.
func (h *RiskHandler) Live(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.activities.Now()

	out := []activityExposure{}
	for _, state := range []domain.ActivityState{domain.StateOpen, domain.StateExpired} {
		list, _, err := h.activities.ListByState(ctx, state, 100, 0)
		if err != nil {
			respondDomainError(c, err, "could not list activities")
			return
		}
		for _, a := range list {
			out = append(out, exposureOf(a, now))
		}
	}
	respondSuccess(c, http.StatusOK, out)
}

func exposureOf(a *domain.Activity, now time.Time) activityExposure {
	hundred := decimal.NewFromInt(100)
	worst := hundred
	choices := make([]choiceExposure, len(a.Choices))
	for i, claims := range a.Exposure() {
		coverage := hundred
		if claims.GreaterThan(a.TotalPool) {
			coverage = a.TotalPool.Mul(hundred).Div(claims).RoundDown(2)
		}
		if coverage.LessThan(worst) {
			worst = coverage
		}
		choices[i] = choiceExposure{
			Choice:   i,
			Name:     a.Choices[i],
			Staked:   a.ChoiceAmounts[i],
			Claims:   claims,
			Coverage: coverage,
		}
	}
	return activityExposure{
		ActivityID: a.ID,
		Name:       a.Name,
		State:      string(a.StateAt(now)),
		Pool:       a.TotalPool,
		Choices:    choices,
		Indicator:  riskIndicator(worst),
	}
}

// riskIndicator returns GREEN/YELLOW/RED from the worst-case coverage.
// Anything below 100 means winners of that choice would be scaled down.
func riskIndicator(coverage decimal.Decimal) string {
	switch {
	case coverage.LessThan(decimal.NewFromInt(70)):
		return "RED"
	case coverage.LessThan(decimal.NewFromInt(100)):
		return "YELLOW"
	default:
		return "GREEN"
	}
}
