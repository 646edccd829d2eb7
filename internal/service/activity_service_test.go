package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/evetabi/easybet/internal/store/memstore"
	"github.com/google/uuid"
)

func TestCreateActivity_PublishesAndCounts(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, uuid.New(), []string{"yes", "no"}, []int64{180, 220})

	if a.ID != 0 {
		t.Errorf("first id = %d, want 0", a.ID)
	}
	if got := e.pub.count(domain.EventActivityCreated); got != 1 {
		t.Errorf("activity_created events = %d, want 1", got)
	}
	n, err := e.activities.ActivityCount(ctx)
	if err != nil || n != 1 {
		t.Errorf("ActivityCount() = %d, %v, want 1", n, err)
	}
	tickets, err := e.activities.ChoiceCount(ctx, a.ID, 0)
	if err != nil || tickets != 0 {
		t.Errorf("ChoiceCount(0) = %d, %v, want 0", tickets, err)
	}
}

func TestChoiceCount_CountsTicketsPerChoice(t *testing.T) {
	e := newEnv(t)
	buyer := uuid.New()
	e.fund(t, buyer, 500)
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{200, 200})
	for i := 0; i < 3; i++ {
		e.buy(t, a.ID, 0, 10, buyer)
	}
	e.buy(t, a.ID, 1, 10, buyer)

	if n, err := e.activities.ChoiceCount(ctx, a.ID, 0); err != nil || n != 3 {
		t.Errorf("ChoiceCount(0) = %d, %v, want 3", n, err)
	}
	if n, err := e.activities.ChoiceCount(ctx, a.ID, 1); err != nil || n != 1 {
		t.Errorf("ChoiceCount(1) = %d, %v, want 1", n, err)
	}
	if _, err := e.activities.ChoiceCount(ctx, a.ID, 2); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Errorf("ChoiceCount(2): err = %v, want ErrInvalidChoice", err)
	}
	if _, err := e.activities.ChoiceCount(ctx, 99, 0); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("unknown activity: err = %v, want ErrActivityNotFound", err)
	}
}

func TestCreateActivity_Rejects(t *testing.T) {
	e := newEnv(t)
	creator := uuid.New()

	if _, err := e.activities.CreateActivity(ctx, creator, "x", []string{"a", "b"}, []int64{100}, time.Hour); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("mismatched odds: err = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := e.activities.CreateActivity(ctx, creator, "x", []string{"a", "b"}, []int64{100, 100}, 0); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Errorf("zero duration: err = %v, want ErrInvalidDuration", err)
	}
	if n, _ := e.activities.ActivityCount(ctx); n != 0 {
		t.Errorf("ActivityCount() after rejects = %d, want 0", n)
	}
}

func TestGetChoiceAmount(t *testing.T) {
	e := newEnv(t)
	buyer := uuid.New()
	e.fund(t, buyer, 500)
	a := e.create(t, uuid.New(), []string{"a", "b", "c"}, []int64{300, 300, 300})
	e.buy(t, a.ID, 2, 70, buyer)

	got, err := e.activities.GetChoiceAmount(ctx, a.ID, 2)
	if err != nil || !got.Equal(units(70)) {
		t.Errorf("GetChoiceAmount(2) = %s, %v, want 70", got, err)
	}
	if _, err := e.activities.GetChoiceAmount(ctx, a.ID, 3); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Errorf("GetChoiceAmount(3): err = %v, want ErrInvalidChoice", err)
	}
	if _, err := e.activities.GetChoiceAmount(ctx, 42, 0); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("unknown activity: err = %v, want ErrActivityNotFound", err)
	}
}

func TestStateCountsAndListByState(t *testing.T) {
	e := newEnv(t)
	creator := uuid.New()

	short, err := e.activities.CreateActivity(ctx, creator, "short", []string{"a", "b"}, []int64{100, 100}, time.Minute)
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	e.create(t, creator, []string{"a", "b"}, []int64{100, 100})
	e.create(t, creator, []string{"a", "b"}, []int64{100, 100})

	e.clock.Advance(2 * time.Minute)

	counts, err := e.activities.StateCounts(ctx)
	if err != nil {
		t.Fatalf("StateCounts: %v", err)
	}
	if counts[domain.StateOpen] != 2 || counts[domain.StateExpired] != 1 || counts[domain.StateSettled] != 0 {
		t.Errorf("StateCounts() = %v, want open=2 expired=1 settled=0", counts)
	}

	expired, total, err := e.activities.ListByState(ctx, domain.StateExpired, 10, 0)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if total != 1 || len(expired) != 1 || expired[0].ID != short.ID {
		t.Errorf("ListByState(expired) = %d items, total %d, want [%d]", len(expired), total, short.ID)
	}

	open, total, err := e.activities.ListByState(ctx, domain.StateOpen, 1, 1)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if total != 2 || len(open) != 1 || open[0].ID != 2 {
		t.Errorf("ListByState(open, 1, 1) = %v (total %d), want id 2 of 2", open, total)
	}
}

func TestStateCounts_IgnoresActivitiesCreatedDuringWalk(t *testing.T) {
	st := &growingStore{Store: memstore.New()}
	e := newEnvWithStore(t, st)
	creator := uuid.New()
	for i := 0; i < 3; i++ {
		e.create(t, creator, []string{"a", "b"}, []int64{100, 100})
	}
	st.onRead = func() {
		st.onRead = nil
		e.create(t, creator, []string{"a", "b"}, []int64{100, 100})
	}

	counts, err := e.activities.StateCounts(ctx)
	if err != nil {
		t.Fatalf("StateCounts: %v", err)
	}
	if counts[domain.StateOpen] != 3 {
		t.Errorf("open = %d, want 3 (each pre-existing activity exactly once)", counts[domain.StateOpen])
	}
}

// growingStore runs onRead before the first activity read, simulating a
// concurrent CreateActivity.
type growingStore struct {
	store.Store
	onRead func()
}

func (g *growingStore) GetActivity(c context.Context, id int64) (*domain.Activity, error) {
	if g.onRead != nil {
		g.onRead()
	}
	return g.Store.GetActivity(c, id)
}

func TestTotalsMatchEscrow(t *testing.T) {
	e := newEnv(t)
	creator, alice, bob := uuid.New(), uuid.New(), uuid.New()
	e.fund(t, alice, 500)
	e.fund(t, bob, 500)

	settled := e.create(t, creator, []string{"a", "b"}, []int64{150, 400})
	e.buy(t, settled.ID, 0, 100, alice) // claim 150
	e.buy(t, settled.ID, 1, 100, bob)
	open := e.create(t, creator, []string{"a", "b"}, []int64{200, 200})
	e.clock.Advance(30 * time.Minute)
	e.buy(t, open.ID, 1, 40, bob)

	e.expire(settled)
	if _, err := e.settlement.Settle(ctx, settled.ID, 0, creator); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	totals, err := e.activities.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if !totals.Distributed.Equal(units(150)) {
		t.Errorf("Distributed = %s, want 150", totals.Distributed)
	}
	if !totals.Residual.Equal(units(50)) {
		t.Errorf("Residual = %s, want 50", totals.Residual)
	}
	if !totals.Unsettled.Equal(units(40)) {
		t.Errorf("Unsettled = %s, want 40", totals.Unsettled)
	}
	escrow, err := e.wallet.EscrowBalance(ctx)
	if err != nil {
		t.Fatalf("EscrowBalance: %v", err)
	}
	if !escrow.Equal(totals.Unsettled.Add(totals.Residual)) {
		t.Errorf("escrow = %s, want unsettled+residual = %s", escrow, totals.Unsettled.Add(totals.Residual))
	}
}
