// Package memstore is an in-process implementation of store.Store. A single
// writer lock serialises every unit of work; writes are journalled so a
// failed unit rolls back completely. Readers share a read lock and receive
// deep copies, so they only ever observe committed state.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type allowanceKey struct {
	owner, spender uuid.UUID
}

// state is the unlocked data set. Read methods live on *state so both Store
// (under RLock) and tx (under the writer lock) can share them.
type state struct {
	activities   []*domain.Activity
	tickets      []*domain.Ticket
	byActivity   map[int64][]int64
	orders       []*domain.Order
	owners       map[int64]uuid.UUID
	balances     map[uuid.UUID]decimal.Decimal
	allowances   map[allowanceKey]decimal.Decimal
	transactions []*domain.Transaction
	users        []*domain.User
	usersByID    map[uuid.UUID]*domain.User
}

// Store is the in-memory store.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		byActivity: make(map[int64][]int64),
		owners:     make(map[int64]uuid.UUID),
		balances:   make(map[uuid.UUID]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
		usersByID:  make(map[uuid.UUID]*domain.User),
	}}
}

// WithTx runs fn while holding the writer lock. On error or panic every
// journalled write is undone in reverse order.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{state: s.st}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()
	if err = fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────────────────────────────────
// Locked read wrappers
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetActivity(ctx, id)
}

func (s *Store) CountActivities(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.CountActivities(ctx)
}

func (s *Store) ListActivities(ctx context.Context, limit, offset int) ([]*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListActivities(ctx, limit, offset)
}

func (s *Store) ListExpiredUnsettled(ctx context.Context, now time.Time) ([]*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListExpiredUnsettled(ctx, now)
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetTicket(ctx, id)
}

func (s *Store) ListTicketsByActivity(ctx context.Context, activityID int64) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTicketsByActivity(ctx, activityID)
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetOrder(ctx, id)
}

func (s *Store) ListActiveOrdersByTicket(ctx context.Context, ticketID int64) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListActiveOrdersByTicket(ctx, ticketID)
}

func (s *Store) ListActiveOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListActiveOrders(ctx, limit, offset)
}

func (s *Store) OwnerOf(ctx context.Context, ticketID int64) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.OwnerOf(ctx, ticketID)
}

func (s *Store) TicketsOwnedBy(ctx context.Context, owner uuid.UUID) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.TicketsOwnedBy(ctx, owner)
}

func (s *Store) BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.BalanceOf(ctx, account)
}

func (s *Store) Allowance(ctx context.Context, owner, spender uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Allowance(ctx, owner, spender)
}

func (s *Store) Transactions(ctx context.Context, account uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Transactions(ctx, account, limit, offset)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetUserByID(ctx, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetUserByEmail(ctx, email)
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListUsers(ctx, limit, offset)
}
