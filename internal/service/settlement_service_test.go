package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/evetabi/easybet/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scenario B: claim 100*150/100 = 150 fits in pool 300.
func TestSettle_ScenarioB_FullPayout(t *testing.T) {
	e := newEnv(t)
	creator, p1, p2 := uuid.New(), uuid.New(), uuid.New()
	e.fund(t, p1, 100)
	e.fund(t, p2, 200)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	e.buy(t, a.ID, 0, 100, p1)
	e.buy(t, a.ID, 1, 200, p2)

	e.expire(a)
	res, err := e.settlement.Settle(ctx, a.ID, 0, creator)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	wantBalance(t, e, "p1", p1, 150)
	wantBalance(t, e, "p2", p2, 0)
	wantBalance(t, e, "escrow", e.escrow.Account(), 150)
	if res.Scaled || !res.Distributed.Equal(units(150)) {
		t.Errorf("Scaled = %v Distributed = %s, want false / 150", res.Scaled, res.Distributed)
	}

	got, _ := e.activities.GetActivity(ctx, a.ID)
	if !got.Settled || got.WinningChoice == nil || *got.WinningChoice != 0 {
		t.Errorf("activity not marked settled with choice 0: %+v", got)
	}
	if !got.TotalPool.Equal(units(150)) {
		t.Errorf("TotalPool after settle = %s, want 150", got.TotalPool)
	}
	evt := e.pub.last()
	payload, _ := evt.Payload.(domain.ActivitySettledPayload)
	if evt.Type != domain.EventActivitySettled || !payload.TotalDistributed.Equal(units(150)) {
		t.Errorf("last event = %+v, want activity_settled distributing 150", evt)
	}
}

// Scenario C: claims 300+300 exceed pool 300, each winner gets 150.
func TestSettle_ScenarioC_Scaled(t *testing.T) {
	e := newEnv(t)
	creator, p1, p2, p3 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	for _, p := range []uuid.UUID{p1, p2, p3} {
		e.fund(t, p, 100)
	}
	a := e.create(t, creator, []string{"A", "B"}, []int64{300, 150})
	e.buy(t, a.ID, 0, 100, p1)
	e.buy(t, a.ID, 0, 100, p2)
	e.buy(t, a.ID, 1, 100, p3)

	e.expire(a)
	res, err := e.settlement.Settle(ctx, a.ID, 0, creator)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !res.Scaled || !res.TotalClaims.Equal(units(600)) {
		t.Errorf("Scaled = %v TotalClaims = %s, want true / 600", res.Scaled, res.TotalClaims)
	}
	wantBalance(t, e, "p1", p1, 150)
	wantBalance(t, e, "p2", p2, 150)
	wantBalance(t, e, "p3", p3, 0)
	wantBalance(t, e, "escrow", e.escrow.Account(), 0)
}

// Scenario E: too early, then wrong caller.
func TestSettle_ScenarioE_Guards(t *testing.T) {
	e := newEnv(t)
	creator := uuid.New()
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})

	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); !errors.Is(err, domain.ErrNotYetExpired) {
		t.Errorf("before deadline: err = %v, want ErrNotYetExpired", err)
	}
	e.expire(a)
	if _, err := e.settlement.Settle(ctx, a.ID, 0, uuid.New()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-creator: err = %v, want ErrUnauthorized", err)
	}
	if _, err := e.settlement.Settle(ctx, a.ID, 2, creator); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Errorf("bad choice: err = %v, want ErrInvalidChoice", err)
	}
	if _, err := e.settlement.Settle(ctx, 42, 0, creator); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("unknown activity: err = %v, want ErrActivityNotFound", err)
	}
}

func TestSettle_Idempotence(t *testing.T) {
	e := newEnv(t)
	creator, p1 := uuid.New(), uuid.New()
	e.fund(t, p1, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	e.buy(t, a.ID, 0, 100, p1)
	e.expire(a)

	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	before := e.balance(t, p1)
	escrowBefore := e.balance(t, e.escrow.Account())

	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Errorf("second Settle: err = %v, want ErrAlreadySettled", err)
	}
	if !e.balance(t, p1).Equal(before) || !e.balance(t, e.escrow.Account()).Equal(escrowBefore) {
		t.Error("balances changed on second settle")
	}
	if n := e.pub.count(domain.EventActivitySettled); n != 1 {
		t.Errorf("activity_settled events = %d, want 1", n)
	}
}

func TestSettle_NoWinners(t *testing.T) {
	e := newEnv(t)
	creator, p1 := uuid.New(), uuid.New()
	e.fund(t, p1, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	e.buy(t, a.ID, 1, 100, p1)
	e.expire(a)

	res, err := e.settlement.Settle(ctx, a.ID, 0, creator)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(res.Payouts) != 0 || !res.Distributed.IsZero() {
		t.Errorf("payouts = %d distributed = %s, want none", len(res.Payouts), res.Distributed)
	}
	got, _ := e.activities.GetActivity(ctx, a.ID)
	if !got.Settled {
		t.Error("activity should be settled with zero winners")
	}
	wantBalance(t, e, "escrow", e.escrow.Account(), 100)
}

func TestSettle_PaysSellerOfListedTicket(t *testing.T) {
	e := newEnv(t)
	creator, seller := uuid.New(), uuid.New()
	e.fund(t, seller, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{200, 200})
	tk := e.buy(t, a.ID, 0, 100, seller)

	if _, err := e.orders.CreateOrder(ctx, tk.ID, units(50), seller); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	e.expire(a)
	res, err := e.settlement.Settle(ctx, a.ID, 0, creator)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Payouts[0].Beneficiary != seller {
		t.Errorf("beneficiary = %s, want seller", res.Payouts[0].Beneficiary)
	}
	wantBalance(t, e, "seller", seller, 100) // pool 100 < claim 200 → scaled to 100

	book, err := e.orders.GetOrderBook(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if len(book) != 1 || !book[0].ActivitySettled {
		t.Errorf("GetOrderBook after settle = %+v, want one entry flagged settled", book)
	}
}

func TestPreview_DoesNotWrite(t *testing.T) {
	e := newEnv(t)
	creator, p1 := uuid.New(), uuid.New()
	e.fund(t, p1, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	e.buy(t, a.ID, 0, 100, p1)

	plan, err := e.settlement.Preview(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !plan.Distributed.Equal(units(100)) { // claim 150 scaled to pool 100
		t.Errorf("Distributed = %s, want 100", plan.Distributed)
	}
	got, _ := e.activities.GetActivity(ctx, a.ID)
	if got.Settled || !got.TotalPool.Equal(units(100)) {
		t.Error("Preview mutated the activity")
	}
	wantBalance(t, e, "p1", p1, 0)
}

// ── Atomicity on payout failure ──────────────────────────────────────────────

var errLedgerDown = errors.New("ledger unavailable")

// flakyStore fails every escrow payout once armed.
type flakyStore struct {
	store.Store
	armed bool
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		if f.armed {
			return fn(flakyTx{tx})
		}
		return fn(tx)
	})
}

type flakyTx struct{ store.Tx }

func (flakyTx) Transfer(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal) error {
	return errLedgerDown
}

func TestSettle_FailedPayoutLeavesActivityUnsettled(t *testing.T) {
	fs := &flakyStore{Store: memstore.New()}
	e := newEnvWithStore(t, fs)
	creator, p1, p2 := uuid.New(), uuid.New(), uuid.New()
	e.fund(t, p1, 100)
	e.fund(t, p2, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 150})
	e.buy(t, a.ID, 0, 100, p1)
	e.buy(t, a.ID, 0, 100, p2)
	e.expire(a)

	fs.armed = true
	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); !errors.Is(err, errLedgerDown) {
		t.Fatalf("Settle err = %v, want errLedgerDown", err)
	}

	got, _ := e.activities.GetActivity(ctx, a.ID)
	if got.Settled || !got.TotalPool.Equal(units(200)) {
		t.Errorf("activity after failed settle: settled=%v pool=%s", got.Settled, got.TotalPool)
	}
	wantBalance(t, e, "p1", p1, 0)
	wantBalance(t, e, "escrow", e.escrow.Account(), 200)

	fs.armed = false
	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); err != nil {
		t.Fatalf("retry Settle: %v", err)
	}
	wantBalance(t, e, "p1", p1, 100)
	wantBalance(t, e, "p2", p2, 100)
}
