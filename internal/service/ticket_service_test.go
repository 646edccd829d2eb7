package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
)

// Scenario A: odds [150,200], P1 stakes 100 on A, P2 stakes 200 on B.
func TestBuyTicket_ScenarioA(t *testing.T) {
	e := newEnv(t)
	creator, p1, p2 := uuid.New(), uuid.New(), uuid.New()
	e.fund(t, p1, 1000)
	e.fund(t, p2, 1000)

	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	if a.ID != 0 {
		t.Errorf("first activity id = %d, want 0", a.ID)
	}
	t0 := e.buy(t, a.ID, 0, 100, p1)
	e.buy(t, a.ID, 1, 200, p2)

	got, _ := e.activities.GetActivity(ctx, a.ID)
	if !got.TotalPool.Equal(units(300)) {
		t.Errorf("TotalPool = %s, want 300", got.TotalPool)
	}
	ticket, err := e.tickets.GetTicket(ctx, 0)
	if err != nil {
		t.Fatalf("GetTicket(0): %v", err)
	}
	if ticket.ID != t0.ID || ticket.LockedOdds != 150 {
		t.Errorf("ticket 0 LockedOdds = %d, want 150", ticket.LockedOdds)
	}

	wantBalance(t, e, "p1", p1, 900)
	wantBalance(t, e, "p2", p2, 800)
	wantBalance(t, e, "escrow", e.escrow.Account(), 300)

	amt, _ := e.activities.GetChoiceAmount(ctx, a.ID, 1)
	if !amt.Equal(units(200)) {
		t.Errorf("GetChoiceAmount(B) = %s, want 200", amt)
	}
	if e.pub.count(domain.EventTicketPurchased) != 2 {
		t.Errorf("ticket_purchased events = %d, want 2", e.pub.count(domain.EventTicketPurchased))
	}
	info, _ := e.tickets.GetTicketInfo(ctx, t0.ID)
	if info.Owner != p1 {
		t.Errorf("owner = %s, want p1", info.Owner)
	}
}

func TestBuyTicket_PoolInvariantAfterEveryStake(t *testing.T) {
	e := newEnv(t)
	bettor := uuid.New()
	e.fund(t, bettor, 10_000)
	a := e.create(t, uuid.New(), []string{"x", "y", "z"}, []int64{110, 250, 400})

	for i, stake := range []int64{5, 17, 300, 1, 42, 99} {
		e.buy(t, a.ID, i%3, stake, bettor)
		got, _ := e.activities.GetActivity(ctx, a.ID)
		if !got.StakedSum().Equal(got.TotalPool) {
			t.Fatalf("after stake %d: sum(choiceAmounts) = %s, TotalPool = %s", i, got.StakedSum(), got.TotalPool)
		}
	}
}

func TestBuyTicket_Rejections(t *testing.T) {
	e := newEnv(t)
	bettor := uuid.New()
	e.fund(t, bettor, 100)
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{150, 200})

	cases := []struct {
		name     string
		activity int64
		choice   int
		stake    int64
		want     error
	}{
		{"unknown activity", 99, 0, 10, domain.ErrActivityNotFound},
		{"bad choice", a.ID, 2, 10, domain.ErrInvalidChoice},
		{"zero stake", a.ID, 0, 0, domain.ErrInvalidAmount},
		{"over allowance", a.ID, 0, 101, domain.ErrInsufficientAllowance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.tickets.BuyTicket(ctx, tc.activity, tc.choice, units(tc.stake), bettor)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Nothing moved.
	wantBalance(t, e, "bettor", bettor, 100)
	if n, _ := e.st.CountActivities(ctx); n != 1 {
		t.Errorf("CountActivities = %d, want 1", n)
	}
	if _, err := e.tickets.GetTicket(ctx, 0); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("GetTicket(0) = %v, want ErrTicketNotFound", err)
	}
}

func TestBuyTicket_ApprovedButUnfunded(t *testing.T) {
	e := newEnv(t)
	bettor := uuid.New()
	if err := e.wallet.Approve(ctx, bettor, units(50)); err != nil {
		t.Fatal(err)
	}
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{150, 200})

	_, err := e.tickets.BuyTicket(ctx, a.ID, 0, units(10), bettor)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	got, _ := e.activities.GetActivity(ctx, a.ID)
	if !got.TotalPool.IsZero() {
		t.Errorf("TotalPool = %s after failed stake, want 0", got.TotalPool)
	}
}

func TestBuyTicket_AfterDeadline(t *testing.T) {
	e := newEnv(t)
	bettor := uuid.New()
	e.fund(t, bettor, 100)
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{150, 200})

	e.clock.Advance(time.Hour) // exactly at deadline
	_, err := e.tickets.BuyTicket(ctx, a.ID, 0, units(10), bettor)
	if !errors.Is(err, domain.ErrActivityExpired) {
		t.Errorf("err = %v, want ErrActivityExpired", err)
	}
	wantBalance(t, e, "bettor", bettor, 100)
}

func TestBuyTicket_AfterSettlement(t *testing.T) {
	e := newEnv(t)
	creator, bettor := uuid.New(), uuid.New()
	e.fund(t, bettor, 100)
	a := e.create(t, creator, []string{"A", "B"}, []int64{150, 200})
	e.expire(a)
	if _, err := e.settlement.Settle(ctx, a.ID, 0, creator); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	_, err := e.tickets.BuyTicket(ctx, a.ID, 0, units(10), bettor)
	if !errors.Is(err, domain.ErrAlreadySettled) {
		t.Errorf("err = %v, want ErrAlreadySettled", err)
	}
}

func TestCreateActivity_Boundaries(t *testing.T) {
	e := newEnv(t)
	creator := uuid.New()

	if _, err := e.activities.CreateActivity(ctx, creator, "ok", []string{"A", "B"}, []int64{100, 100}, time.Hour); err != nil {
		t.Errorf("odds 100: err = %v, want nil", err)
	}
	_, err := e.activities.CreateActivity(ctx, creator, "bad", []string{"A", "B"}, []int64{99, 100}, time.Hour)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("odds 99: err = %v, want ErrInvalidConfiguration", err)
	}
	_, err = e.activities.CreateActivity(ctx, creator, "bad", []string{"A", "B"}, []int64{100, 100}, 0)
	if !errors.Is(err, domain.ErrInvalidDuration) {
		t.Errorf("duration 0: err = %v, want ErrInvalidDuration", err)
	}

	if n, _ := e.activities.ActivityCount(ctx); n != 1 {
		t.Errorf("ActivityCount = %d, want 1", n)
	}
	if c, err := e.activities.ChoiceCount(ctx, 0, 1); err != nil || c != 0 {
		t.Errorf("ChoiceCount(1) = %d, %v, want 0", c, err)
	}
	evt := e.pub.last()
	payload, ok := evt.Payload.(domain.ActivityCreatedPayload)
	if evt.Type != domain.EventActivityCreated || !ok || len(payload.Odds) != 2 {
		t.Errorf("last event = %+v, want activity_created with configuration", evt)
	}
}

func TestGetChoiceAmount_Errors(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{150, 200})

	if _, err := e.activities.GetChoiceAmount(ctx, 7, 0); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("unknown activity: err = %v", err)
	}
	if _, err := e.activities.GetChoiceAmount(ctx, a.ID, 5); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Errorf("bad choice: err = %v", err)
	}
}

func TestTransferTicket(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	e.fund(t, alice, 100)
	a := e.create(t, uuid.New(), []string{"A", "B"}, []int64{150, 200})
	tk := e.buy(t, a.ID, 0, 50, alice)

	if err := e.tickets.TransferTicket(ctx, tk.ID, bob, alice); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("transfer by non-owner: err = %v, want ErrNotOwner", err)
	}
	if err := e.tickets.TransferTicket(ctx, tk.ID, alice, e.escrow.Account()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("transfer to escrow: err = %v, want ErrForbidden", err)
	}
	if err := e.tickets.TransferTicket(ctx, tk.ID, alice, bob); err != nil {
		t.Fatalf("TransferTicket: %v", err)
	}

	mine, _ := e.tickets.TicketsOf(ctx, bob)
	if len(mine) != 1 || mine[0].ID != tk.ID {
		t.Errorf("TicketsOf(bob) = %v, want [ticket %d]", mine, tk.ID)
	}
	all, _ := e.tickets.TicketsForActivity(ctx, a.ID)
	if len(all) != 1 || all[0].Owner != bob {
		t.Errorf("TicketsForActivity owner = %v, want bob", all)
	}
}
