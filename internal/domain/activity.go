// Package domain defines the core business entities and types for the
// odds-locked wagering system: activities, tickets, resale orders, payouts
// and the value ledger records that move stakes in and out of escrow.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// OddsScale is the fixed-point scale of every odds value: 100 means 1.0x.
const OddsScale = 100

// MinChoices is the smallest number of outcomes an activity may offer.
const MinChoices = 2

// ActivityState is derived from (now, deadline, settled); it is never stored.
type ActivityState string

const (
	StateOpen    ActivityState = "open"    // accepting stakes
	StateExpired ActivityState = "expired" // deadline passed, awaiting settlement
	StateSettled ActivityState = "settled" // terminal
)

// ──────────────────────────────────────────────────────────────────────────────
// Activity
// ──────────────────────────────────────────────────────────────────────────────

// Activity is a single wagering event with fixed outcomes and fixed odds.
type Activity struct {
	ID            int64             `json:"id"`
	Creator       uuid.UUID         `json:"creator"`
	Name          string            `json:"name"`
	Choices       []string          `json:"choices"`
	Odds          []int64           `json:"odds"`
	Deadline      time.Time         `json:"deadline"`
	TotalPool     decimal.Decimal   `json:"total_pool"`
	ChoiceAmounts []decimal.Decimal `json:"choice_amounts"`
	Settled       bool              `json:"settled"`
	WinningChoice *int              `json:"winning_choice"`
	Distributed   decimal.Decimal   `json:"distributed"` // paid out at settlement
	CreatedAt     time.Time         `json:"created_at"`
	SettledAt     *time.Time        `json:"settled_at"`
}

// NewActivity validates the configuration and builds an empty activity. The
// id is assigned by the store.
func NewActivity(creator uuid.UUID, name string, choices []string, odds []int64, now time.Time, duration time.Duration) (*Activity, error) {
	if err := ValidateConfiguration(choices, odds); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	amounts := make([]decimal.Decimal, len(choices))
	for i := range amounts {
		amounts[i] = decimal.Zero
	}
	return &Activity{
		Creator:       creator,
		Name:          name,
		Choices:       append([]string(nil), choices...),
		Odds:          append([]int64(nil), odds...),
		Deadline:      now.Add(duration),
		TotalPool:     decimal.Zero,
		ChoiceAmounts: amounts,
		Distributed:   decimal.Zero,
		CreatedAt:     now,
	}, nil
}

// ValidateConfiguration checks the choice/odds pairing rules.
func ValidateConfiguration(choices []string, odds []int64) error {
	if len(choices) != len(odds) || len(choices) < MinChoices {
		return ErrInvalidConfiguration
	}
	for _, o := range odds {
		if o < OddsScale {
			return ErrInvalidConfiguration
		}
	}
	return nil
}

// StateAt returns the lifecycle state of the activity at the given instant.
func (a *Activity) StateAt(now time.Time) ActivityState {
	switch {
	case a.Settled:
		return StateSettled
	case now.Before(a.Deadline):
		return StateOpen
	default:
		return StateExpired
	}
}

// ValidChoice reports whether choice indexes one of the activity's outcomes.
func (a *Activity) ValidChoice(choice int) bool {
	return choice >= 0 && choice < len(a.Choices)
}

// CheckStake is the single dispatch point for stake admission: the activity
// must be open and the choice must exist.
func (a *Activity) CheckStake(now time.Time, choice int) error {
	switch a.StateAt(now) {
	case StateExpired:
		return ErrActivityExpired
	case StateSettled:
		return ErrAlreadySettled
	}
	if !a.ValidChoice(choice) {
		return ErrInvalidChoice
	}
	return nil
}

// CheckSettle validates a settlement request. Checks run in a fixed order:
// creator, deadline, settled flag, then choice.
func (a *Activity) CheckSettle(now time.Time, caller uuid.UUID, winningChoice int) error {
	if caller != a.Creator {
		return ErrUnauthorized
	}
	switch a.StateAt(now) {
	case StateOpen:
		return ErrNotYetExpired
	case StateSettled:
		return ErrAlreadySettled
	}
	if !a.ValidChoice(winningChoice) {
		return ErrInvalidChoice
	}
	return nil
}

// ApplyStake adds amount to the pool and to the chosen outcome together.
func (a *Activity) ApplyStake(choice int, amount decimal.Decimal) {
	a.ChoiceAmounts[choice] = a.ChoiceAmounts[choice].Add(amount)
	a.TotalPool = a.TotalPool.Add(amount)
}

// StakedSum returns sum(ChoiceAmounts). Equals TotalPool until settlement.
func (a *Activity) StakedSum() decimal.Decimal {
	sum := decimal.Zero
	for _, amt := range a.ChoiceAmounts {
		sum = sum.Add(amt)
	}
	return sum
}

// OddsFor returns the odds of a choice, or 0 when the index is out of range.
func (a *Activity) OddsFor(choice int) int64 {
	if !a.ValidChoice(choice) {
		return 0
	}
	return a.Odds[choice]
}

// Exposure returns, per choice, the claims owed if that choice wins,
// computed on the aggregate stake. Per-ticket truncation can only make the
// real total smaller.
func (a *Activity) Exposure() []decimal.Decimal {
	out := make([]decimal.Decimal, len(a.ChoiceAmounts))
	for i, amt := range a.ChoiceAmounts {
		out[i] = ClaimFor(amt, a.OddsFor(i))
	}
	return out
}

// TimeLeft returns the betting time remaining at now, never negative.
func (a *Activity) TimeLeft(now time.Time) time.Duration {
	remaining := a.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clone returns a deep copy so callers can never alias stored slices.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	c := *a
	c.Choices = append([]string(nil), a.Choices...)
	c.Odds = append([]int64(nil), a.Odds...)
	c.ChoiceAmounts = append([]decimal.Decimal(nil), a.ChoiceAmounts...)
	if a.WinningChoice != nil {
		w := *a.WinningChoice
		c.WinningChoice = &w
	}
	if a.SettledAt != nil {
		t := *a.SettledAt
		c.SettledAt = &t
	}
	return &c
}

// ──────────────────────────────────────────────────────────────────────────────
// ActivitySummary — read model for list endpoints and WS broadcasts
// ──────────────────────────────────────────────────────────────────────────────

// ActivitySummary is a derived, read-only view of an Activity.
type ActivitySummary struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Creator       uuid.UUID         `json:"creator"`
	State         ActivityState     `json:"state"`
	Choices       []string          `json:"choices"`
	Odds          []int64           `json:"odds"`
	ChoiceAmounts []decimal.Decimal `json:"choice_amounts"`
	TotalPool     decimal.Decimal   `json:"total_pool"`
	Deadline      time.Time         `json:"deadline"`
	TimeLeftSec   int64             `json:"time_left_sec"`
	WinningChoice *int              `json:"winning_choice,omitempty"`
}

// ToSummary builds an ActivitySummary evaluated at now.
func (a *Activity) ToSummary(now time.Time) ActivitySummary {
	c := a.Clone()
	return ActivitySummary{
		ID:            c.ID,
		Name:          c.Name,
		Creator:       c.Creator,
		State:         c.StateAt(now),
		Choices:       c.Choices,
		Odds:          c.Odds,
		ChoiceAmounts: c.ChoiceAmounts,
		TotalPool:     c.TotalPool,
		Deadline:      c.Deadline,
		TimeLeftSec:   int64(c.TimeLeft(now).Seconds()),
		WinningChoice: c.WinningChoice,
	}
}
