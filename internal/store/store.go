// Package store defines the persistence contract shared by the in-memory
// store and the PostgreSQL repository. Every mutating operation runs inside
// Store.WithTx; either all of its writes commit or none do.
package store

import (
	"context"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// External capabilities
// ──────────────────────────────────────────────────────────────────────────────

// ValueLedger moves fungible value between accounts. TransferFrom debits
// from against the allowance from granted to spender.
type ValueLedger interface {
	Approve(ctx context.Context, owner, spender uuid.UUID, amount decimal.Decimal) error
	Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, from, to uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error
	LogTransaction(ctx context.Context, t *domain.Transaction) error
}

// TicketRegistry tracks ticket custody. Ticket ids match the ticket ledger
// one-to-one.
type TicketRegistry interface {
	MintTicket(ctx context.Context, owner uuid.UUID, ticketID int64) error
	MoveTicket(ctx context.Context, ticketID int64, from, to uuid.UUID) error
}

// ──────────────────────────────────────────────────────────────────────────────
// Reader — committed-state reads
// ──────────────────────────────────────────────────────────────────────────────

// Reader exposes read access. Returned values are copies; mutating them never
// affects stored state.
type Reader interface {
	GetActivity(ctx context.Context, id int64) (*domain.Activity, error)
	CountActivities(ctx context.Context) (int64, error)
	ListActivities(ctx context.Context, limit, offset int) ([]*domain.Activity, error)
	ListExpiredUnsettled(ctx context.Context, now time.Time) ([]*domain.Activity, error)

	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListTicketsByActivity(ctx context.Context, activityID int64) ([]*domain.Ticket, error)

	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListActiveOrdersByTicket(ctx context.Context, ticketID int64) ([]*domain.Order, error)
	ListActiveOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error)

	OwnerOf(ctx context.Context, ticketID int64) (uuid.UUID, error)
	TicketsOwnedBy(ctx context.Context, owner uuid.UUID) ([]int64, error)

	BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error)
	Allowance(ctx context.Context, owner, spender uuid.UUID) (decimal.Decimal, error)
	Transactions(ctx context.Context, account uuid.UUID, limit, offset int) ([]*domain.Transaction, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tx — one unit of work
// ──────────────────────────────────────────────────────────────────────────────

// Tx is the write view handed to WithTx callbacks. Reads through a Tx see the
// transaction's own writes. Insert methods assign the next sequential id.
type Tx interface {
	Reader
	ValueLedger
	TicketRegistry

	InsertActivity(ctx context.Context, a *domain.Activity) error
	// LockActivity reads an activity and holds it until the transaction ends.
	LockActivity(ctx context.Context, id int64) (*domain.Activity, error)
	// UpdateActivity persists pool, choice amounts and settlement fields.
	UpdateActivity(ctx context.Context, a *domain.Activity) error

	InsertTicket(ctx context.Context, t *domain.Ticket) error

	InsertOrder(ctx context.Context, o *domain.Order) error
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) error

	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUserStatus(ctx context.Context, id uuid.UUID, active bool) error
	UpdateUserRole(ctx context.Context, id uuid.UUID, role domain.UserRole) error
}

// Store is the handle services are built with.
type Store interface {
	Reader
	// WithTx runs fn as one atomic unit. A non-nil error from fn rolls every
	// write back and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
