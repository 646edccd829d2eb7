package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/evetabi/easybet/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

func seedActivity(t *testing.T, s *memstore.Store) *domain.Activity {
	t.Helper()
	a, err := domain.NewActivity(uuid.New(), "derby", []string{"home", "away"}, []int64{150, 200}, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertActivity(context.Background(), a)
	})
	if err != nil {
		t.Fatalf("InsertActivity: %v", err)
	}
	return a
}

func TestSequentialIDs(t *testing.T) {
	s := memstore.New()
	for want := int64(0); want < 3; want++ {
		if a := seedActivity(t, s); a.ID != want {
			t.Errorf("activity id = %d, want %d", a.ID, want)
		}
	}
	n, _ := s.CountActivities(context.Background())
	if n != 3 {
		t.Errorf("CountActivities = %d, want 3", n)
	}
}

func TestWithTx_RollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedActivity(t, s)
	alice, escrow := uuid.New(), uuid.New()

	_ = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credit(ctx, alice, decimal.NewFromInt(500)); err != nil {
			return err
		}
		return tx.Approve(ctx, alice, escrow, decimal.NewFromInt(500))
	})

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TransferFrom(ctx, escrow, alice, escrow, decimal.NewFromInt(100)); err != nil {
			return err
		}
		locked, err := tx.LockActivity(ctx, a.ID)
		if err != nil {
			return err
		}
		locked.ApplyStake(0, decimal.NewFromInt(100))
		if err := tx.UpdateActivity(ctx, locked); err != nil {
			return err
		}
		tk := &domain.Ticket{ActivityID: a.ID, Stake: decimal.NewFromInt(100), LockedOdds: 150}
		if err := tx.InsertTicket(ctx, tk); err != nil {
			return err
		}
		if err := tx.MintTicket(ctx, alice, tk.ID); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx err = %v, want errBoom", err)
	}

	bal, _ := s.BalanceOf(ctx, alice)
	if !bal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance after rollback = %s, want 500", bal)
	}
	allowed, _ := s.Allowance(ctx, alice, escrow)
	if !allowed.Equal(decimal.NewFromInt(500)) {
		t.Errorf("allowance after rollback = %s, want 500", allowed)
	}
	got, _ := s.GetActivity(ctx, a.ID)
	if !got.TotalPool.IsZero() {
		t.Errorf("TotalPool after rollback = %s, want 0", got.TotalPool)
	}
	if _, err := s.GetTicket(ctx, 0); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("GetTicket after rollback = %v, want ErrTicketNotFound", err)
	}
	if _, err := s.OwnerOf(ctx, 0); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("OwnerOf after rollback = %v, want ErrTicketNotFound", err)
	}
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedActivity(t, s)

	got, _ := s.GetActivity(ctx, a.ID)
	got.ChoiceAmounts[0] = decimal.NewFromInt(999)
	got.Settled = true

	again, _ := s.GetActivity(ctx, a.ID)
	if again.Settled || !again.ChoiceAmounts[0].IsZero() {
		t.Error("mutating a read value leaked into the store")
	}
}

func TestTransferFrom_Errors(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner, spender, to := uuid.New(), uuid.New(), uuid.New()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.TransferFrom(ctx, spender, owner, to, decimal.NewFromInt(1))
	})
	if !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Errorf("no allowance: err = %v, want ErrInsufficientAllowance", err)
	}

	_ = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Approve(ctx, owner, spender, decimal.NewFromInt(10))
	})
	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.TransferFrom(ctx, spender, owner, to, decimal.NewFromInt(5))
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("no balance: err = %v, want ErrInsufficientBalance", err)
	}
}

func TestMoveTicket_NotOwner(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedActivity(t, s)
	alice, bob := uuid.New(), uuid.New()

	_ = s.WithTx(ctx, func(tx store.Tx) error {
		tk := &domain.Ticket{ActivityID: a.ID, Stake: decimal.NewFromInt(1), LockedOdds: 150}
		if err := tx.InsertTicket(ctx, tk); err != nil {
			return err
		}
		return tx.MintTicket(ctx, alice, tk.ID)
	})

	err := s.WithTx(ctx, func(tx store.Tx) error { return tx.MoveTicket(ctx, 0, bob, alice) })
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("MoveTicket by non-owner = %v, want ErrNotOwner", err)
	}
	ids, _ := s.TicketsOwnedBy(ctx, alice)
	if len(ids) != 1 || ids[0] != 0 {
		t.Errorf("TicketsOwnedBy(alice) = %v, want [0]", ids)
	}
}

func TestConcurrentCredits(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	acct := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(ctx, func(tx store.Tx) error {
				return tx.Credit(ctx, acct, decimal.NewFromInt(2))
			})
		}()
	}
	wg.Wait()

	bal, _ := s.BalanceOf(ctx, acct)
	if !bal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", bal)
	}
}
