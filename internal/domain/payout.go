package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oddsScale = decimal.NewFromInt(OddsScale)

// quo truncates a/b toward zero, matching integer division on whole units.
func quo(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// ClaimFor returns stake*odds/100, truncated.
func ClaimFor(stake decimal.Decimal, odds int64) decimal.Decimal {
	return quo(stake.Mul(decimal.NewFromInt(odds)), oddsScale)
}

// Claim is one winning ticket's entitlement at settlement.
type Claim struct {
	TicketID    int64           `json:"ticket_id"`
	Beneficiary uuid.UUID       `json:"beneficiary"`
	Amount      decimal.Decimal `json:"claim"`
}

// Payout is what a winning ticket actually receives.
type Payout struct {
	TicketID    int64           `json:"ticket_id"`
	Beneficiary uuid.UUID       `json:"beneficiary"`
	Claim       decimal.Decimal `json:"claim"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayoutPlan is the full, deterministic result of a settlement computation.
type PayoutPlan struct {
	Pool        decimal.Decimal `json:"pool"`
	TotalClaims decimal.Decimal `json:"total_claims"`
	Scaled      bool            `json:"scaled"`
	Payouts     []Payout        `json:"payouts"`
	Distributed decimal.Decimal `json:"distributed"`
	Residual    decimal.Decimal `json:"residual"` // left unassigned in escrow
}

// ComputePayouts applies the capped-proportional rule in a single pass:
// full claims when the pool covers them, otherwise pool*claim/totalClaims
// truncated. No payout exceeds its claim and the sum never exceeds pool.
func ComputePayouts(pool decimal.Decimal, claims []Claim) PayoutPlan {
	plan := PayoutPlan{
		Pool:        pool,
		TotalClaims: decimal.Zero,
		Distributed: decimal.Zero,
		Payouts:     make([]Payout, 0, len(claims)),
	}
	for _, c := range claims {
		plan.TotalClaims = plan.TotalClaims.Add(c.Amount)
	}
	if plan.TotalClaims.IsZero() {
		plan.Residual = pool
		return plan
	}

	plan.Scaled = pool.LessThan(plan.TotalClaims)
	for _, c := range claims {
		amount := c.Amount
		if plan.Scaled {
			amount = quo(pool.Mul(c.Amount), plan.TotalClaims)
		}
		plan.Payouts = append(plan.Payouts, Payout{
			TicketID:    c.TicketID,
			Beneficiary: c.Beneficiary,
			Claim:       c.Amount,
			Amount:      amount,
		})
		plan.Distributed = plan.Distributed.Add(amount)
	}
	plan.Residual = pool.Sub(plan.Distributed)
	return plan
}

// Settlement is the committed (or previewed) outcome of resolving an activity.
type Settlement struct {
	ActivityID    int64 `json:"activity_id"`
	WinningChoice int   `json:"winning_choice"`
	PayoutPlan
}
