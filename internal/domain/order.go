package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks the terminal state of a resale order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a resale listing. While Active the ticket is held by escrow.
// The only transitions are open → filled and open → cancelled.
type Order struct {
	ID        int64           `json:"id"         db:"id"`
	TicketID  int64           `json:"ticket_id"  db:"ticket_id"`
	Seller    uuid.UUID       `json:"seller"     db:"seller"`
	Price     decimal.Decimal `json:"price"      db:"price"`
	Active    bool            `json:"active"     db:"active"`
	Status    OrderStatus     `json:"status"     db:"status"`
	Buyer     *uuid.UUID      `json:"buyer"      db:"buyer"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ClosedAt  *time.Time      `json:"closed_at"  db:"closed_at"`
}

// Close flips the order to a terminal status. The caller must have checked
// Active first.
func (o *Order) Close(status OrderStatus, buyer *uuid.UUID, at time.Time) {
	o.Active = false
	o.Status = status
	o.Buyer = buyer
	o.ClosedAt = &at
}

// OrderBookEntry is the compact listing returned by GetOrderBook.
// ActivitySettled warns buyers that the ticket's claim was already paid to
// the seller; the order itself stays fillable.
type OrderBookEntry struct {
	OrderID         int64           `json:"order_id"`
	Price           decimal.Decimal `json:"price"`
	ActivitySettled bool            `json:"activity_settled"`
}
