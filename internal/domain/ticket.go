package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Ticket
// ──────────────────────────────────────────────────────────────────────────────

// Ticket is the immutable record of one stake. Custody is tracked by the
// ticket registry, never here, so a resale can never change Stake or
// LockedOdds.
type Ticket struct {
	ID          int64           `json:"id"           db:"id"`
	ActivityID  int64           `json:"activity_id"  db:"activity_id"`
	Choice      int             `json:"choice"       db:"choice"`
	Stake       decimal.Decimal `json:"stake"        db:"stake"`
	LockedOdds  int64           `json:"locked_odds"  db:"locked_odds"`
	PurchasedAt time.Time       `json:"purchased_at" db:"purchased_at"`
}

// Claim returns the full amount this ticket is owed if its choice wins.
func (t *Ticket) Claim() decimal.Decimal {
	return ClaimFor(t.Stake, t.LockedOdds)
}

// TicketInfo pairs a ticket with its current holder.
type TicketInfo struct {
	Ticket
	Owner uuid.UUID `json:"owner" db:"owner"`
}
