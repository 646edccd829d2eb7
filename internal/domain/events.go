package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an outward notification for observers and indexers.
type EventType string

const (
	EventActivityCreated EventType = "activity_created"
	EventTicketPurchased EventType = "ticket_purchased"
	EventOrderCreated    EventType = "order_created"
	EventOrderFilled     EventType = "order_filled"
	EventOrderCancelled  EventType = "order_cancelled"
	EventActivitySettled EventType = "activity_settled"
	EventActivityExpired EventType = "activity_expired"
)

// Event is the envelope every sink receives. Payload is one of the
// *Payload structs below.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps a payload with its type and time.
func NewEvent(t EventType, payload any, at time.Time) Event {
	return Event{Type: t, Payload: payload, Timestamp: at}
}

// ──────────────────────────────────────────────────────────────────────────────
// Payloads
// ──────────────────────────────────────────────────────────────────────────────

type ActivityCreatedPayload struct {
	ActivityID int64     `json:"activity_id"`
	Creator    uuid.UUID `json:"creator"`
	Name       string    `json:"name"`
	Choices    []string  `json:"choices"`
	Odds       []int64   `json:"odds"`
	Deadline   time.Time `json:"deadline"`
}

type TicketPurchasedPayload struct {
	TicketID   int64           `json:"ticket_id"`
	ActivityID int64           `json:"activity_id"`
	Buyer      uuid.UUID       `json:"buyer"`
	Choice     int             `json:"choice"`
	Stake      decimal.Decimal `json:"stake"`
	LockedOdds int64           `json:"locked_odds"`
	TotalPool  decimal.Decimal `json:"total_pool"`
}

type OrderCreatedPayload struct {
	OrderID  int64           `json:"order_id"`
	TicketID int64           `json:"ticket_id"`
	Seller   uuid.UUID       `json:"seller"`
	Price    decimal.Decimal `json:"price"`
}

type OrderFilledPayload struct {
	OrderID  int64           `json:"order_id"`
	TicketID int64           `json:"ticket_id"`
	Buyer    uuid.UUID       `json:"buyer"`
	Seller   uuid.UUID       `json:"seller"`
	Price    decimal.Decimal `json:"price"`
}

type OrderCancelledPayload struct {
	OrderID  int64     `json:"order_id"`
	TicketID int64     `json:"ticket_id"`
	Seller   uuid.UUID `json:"seller"`
}

type ActivitySettledPayload struct {
	ActivityID       int64           `json:"activity_id"`
	WinningChoice    int             `json:"winning_choice"`
	Winners          int             `json:"winners"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	Residual         decimal.Decimal `json:"residual"`
}

// ActivityExpiredPayload is announced once by the expiry watcher when the
// deadline of an unsettled activity passes.
type ActivityExpiredPayload struct {
	ActivityID int64           `json:"activity_id"`
	Deadline   time.Time       `json:"deadline"`
	TotalPool  decimal.Decimal `json:"total_pool"`
}
