package service

import (
	"context"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletService exposes the value ledger to account holders: balances,
// approvals of the escrow as spender, audit history and admin credits.
type WalletService struct {
	store  store.Store
	escrow *EscrowLedger
	clock  Clock
}

// NewWalletService creates a WalletService.
func NewWalletService(st store.Store, escrow *EscrowLedger, clock Clock) *WalletService {
	return &WalletService{store: st, escrow: escrow, clock: clock}
}

// WalletView is the balance summary returned to a user.
type WalletView struct {
	Account   uuid.UUID       `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	Allowance decimal.Decimal `json:"allowance"` // approved to escrow
	Escrow    uuid.UUID       `json:"escrow"`
}

// Balance returns an account's balance and its allowance to escrow.
func (s *WalletService) Balance(ctx context.Context, account uuid.UUID) (*WalletView, error) {
	bal, err := s.store.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Balance: %w", err)
	}
	allowed, err := s.store.Allowance(ctx, account, s.escrow.Account())
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Balance: allowance: %w", err)
	}
	return &WalletView{Account: account, Balance: bal, Allowance: allowed, Escrow: s.escrow.Account()}, nil
}

// Approve sets the amount escrow may pull from owner for stakes and
// purchases. Zero revokes.
func (s *WalletService) Approve(ctx context.Context, owner uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.IsInteger() {
		return domain.ErrInvalidAmount
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Approve(ctx, owner, s.escrow.Account(), amount)
	})
	return wrapTx("wallet_service.Approve", err)
}

// Transactions returns an account's audit trail, newest first.
func (s *WalletService) Transactions(ctx context.Context, account uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = clampPage(limit, offset)
	txns, err := s.store.Transactions(ctx, account, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Transactions: %w", err)
	}
	return txns, nil
}

// Credit mints amount into account and records it. typ is TxBonus or
// TxCredit.
func (s *WalletService) Credit(ctx context.Context, account uuid.UUID, amount decimal.Decimal, typ domain.TxType, desc string) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return creditTx(ctx, tx, account, amount, typ, desc, s.clock)
	})
	return wrapTx("wallet_service.Credit", err)
}

// EscrowBalance returns the escrow account's balance.
func (s *WalletService) EscrowBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.escrow.Balance(ctx)
}

func creditTx(ctx context.Context, tx store.Tx, account uuid.UUID, amount decimal.Decimal, typ domain.TxType, desc string, clock Clock) error {
	if err := tx.Credit(ctx, account, amount); err != nil {
		return err
	}
	txn := domain.NewTransaction(uuid.Nil, account, typ, amount, "account:"+account.String(), desc, clock.Now())
	if err := tx.LogTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("log credit: %w", err)
	}
	return nil
}
