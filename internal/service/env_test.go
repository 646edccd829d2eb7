package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/store"
	"github.com/evetabi/easybet/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Test doubles ─────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, evt domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// ── Environment ──────────────────────────────────────────────────────────────

type env struct {
	st         store.Store
	clock      *fakeClock
	pub        *recorder
	escrow     *service.EscrowLedger
	activities *service.ActivityService
	tickets    *service.TicketService
	settlement *service.SettlementService
	orders     *service.OrderBookService
	wallet     *service.WalletService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, memstore.New())
}

func newEnvWithStore(t *testing.T, st store.Store) *env {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	pub := &recorder{}
	escrow := service.NewEscrowLedger(uuid.New(), st)

	e := &env{
		st:         st,
		clock:      clock,
		pub:        pub,
		escrow:     escrow,
		activities: service.NewActivityService(st, clock, nil),
		settlement: service.NewSettlementService(st, escrow, clock, nil),
		orders:     service.NewOrderBookService(st, escrow, clock, nil),
		wallet:     service.NewWalletService(st, escrow, clock),
	}
	e.tickets = service.NewTicketService(st, e.activities, escrow, clock, nil)

	e.activities.SetPublisher(pub)
	e.tickets.SetPublisher(pub)
	e.settlement.SetPublisher(pub)
	e.orders.SetPublisher(pub)
	return e
}

var ctx = context.Background()

func units(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fund credits an account and approves the escrow for the same amount.
func (e *env) fund(t *testing.T, acct uuid.UUID, amount int64) {
	t.Helper()
	if err := e.wallet.Credit(ctx, acct, units(amount), domain.TxCredit, "test"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := e.wallet.Approve(ctx, acct, units(amount)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func (e *env) balance(t *testing.T, acct uuid.UUID) decimal.Decimal {
	t.Helper()
	bal, err := e.st.BalanceOf(ctx, acct)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return bal
}

func (e *env) create(t *testing.T, creator uuid.UUID, choices []string, odds []int64) *domain.Activity {
	t.Helper()
	a, err := e.activities.CreateActivity(ctx, creator, "test activity", choices, odds, 3600*time.Second)
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	return a
}

func (e *env) buy(t *testing.T, activityID int64, choice int, stake int64, buyer uuid.UUID) *domain.Ticket {
	t.Helper()
	tk, err := e.tickets.BuyTicket(ctx, activityID, choice, units(stake), buyer)
	if err != nil {
		t.Fatalf("BuyTicket(%d, %d, %d): %v", activityID, choice, stake, err)
	}
	return tk
}

func (e *env) expire(a *domain.Activity) {
	e.clock.Advance(a.Deadline.Sub(e.clock.Now()) + time.Second)
}

func wantBalance(t *testing.T, e *env, who string, acct uuid.UUID, want int64) {
	t.Helper()
	if got := e.balance(t, acct); !got.Equal(units(want)) {
		t.Errorf("%s balance = %s, want %d", who, got, want)
	}
}
