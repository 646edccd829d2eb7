package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/repository"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// openTestStore connects to EASYBET_TEST_DSN and migrates it. The test is
// skipped when no database is configured.
func openTestStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := os.Getenv("EASYBET_TEST_DSN")
	if dsn == "" {
		t.Skip("EASYBET_TEST_DSN not set")
	}
	ctx := context.Background()
	st, err := repository.Open(ctx, config.DBConfig{
		DSN:             dsn,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return st
}

func TestStore_ActivityRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	a, err := domain.NewActivity(uuid.New(), "derby", []string{"home", "away"}, []int64{150, 250}, now, time.Hour)
	if err != nil {
		t.Fatalf("NewActivity: %v", err)
	}
	err = st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertActivity(ctx, a); err != nil {
			return err
		}
		a.ApplyStake(1, decimal.NewFromInt(40))
		return tx.UpdateActivity(ctx, a)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	got, err := st.GetActivity(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if len(got.Choices) != 2 || got.Choices[1] != "away" || got.Odds[1] != 250 {
		t.Errorf("choices = %v odds = %v", got.Choices, got.Odds)
	}
	if !got.TotalPool.Equal(decimal.NewFromInt(40)) || !got.ChoiceAmounts[1].Equal(decimal.NewFromInt(40)) {
		t.Errorf("pool = %s amounts = %v, want 40", got.TotalPool, got.ChoiceAmounts)
	}
}

func TestStore_RollbackReleasesIDAndFunds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	acct := uuid.New()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credit(ctx, acct, decimal.NewFromInt(100)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	bal, err := st.BalanceOf(ctx, acct)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("balance = %s, want 0", bal)
	}
}

func TestStore_LedgerGuards(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	owner, spender, to := uuid.New(), uuid.New(), uuid.New()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credit(ctx, owner, decimal.NewFromInt(10)); err != nil {
			return err
		}
		return tx.Approve(ctx, owner, spender, decimal.NewFromInt(5))
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = st.WithTx(ctx, func(tx store.Tx) error {
		return tx.TransferFrom(ctx, spender, owner, to, decimal.NewFromInt(6))
	})
	if !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Errorf("over allowance = %v, want ErrInsufficientAllowance", err)
	}

	err = st.WithTx(ctx, func(tx store.Tx) error {
		return tx.TransferFrom(ctx, spender, owner, to, decimal.NewFromInt(5))
	})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	left, _ := st.Allowance(ctx, owner, spender)
	if !left.IsZero() {
		t.Errorf("allowance = %s, want 0", left)
	}
	got, _ := st.BalanceOf(ctx, to)
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("recipient balance = %s, want 5", got)
	}
}

func TestStore_DuplicateEmail(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	email := uuid.NewString() + "@example.com"

	mk := func(username string) *domain.User {
		return &domain.User{
			ID: uuid.New(), Email: email, Username: username, PasswordHash: "x",
			Role: domain.RoleUser, IsActive: true, CreatedAt: now, UpdatedAt: now,
		}
	}
	if err := st.WithTx(ctx, func(tx store.Tx) error { return tx.CreateUser(ctx, mk(uuid.NewString())) }); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := st.WithTx(ctx, func(tx store.Tx) error { return tx.CreateUser(ctx, mk(uuid.NewString())) })
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("duplicate = %v, want ErrEmailTaken", err)
	}
}

func TestStore_Ping(t *testing.T) {
	st := openTestStore(t)
	if err := st.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	st.Close()
	if err := st.Ping(context.Background()); err == nil {
		t.Error("Ping after Close = nil, want error")
	}
}
