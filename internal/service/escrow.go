package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EscrowLedger is the only component that moves value into or out of the
// escrow account, and the only one that parks tickets there. Every method
// takes the caller's store.Tx so value and state move together.
type EscrowLedger struct {
	account uuid.UUID
	reader  store.Reader
}

// NewEscrowLedger binds the ledger to the configured escrow account.
func NewEscrowLedger(account uuid.UUID, reader store.Reader) *EscrowLedger {
	return &EscrowLedger{account: account, reader: reader}
}

// Account returns the escrow account id. Users approve this id as spender.
func (e *EscrowLedger) Account() uuid.UUID { return e.account }

// Balance returns the escrow account's committed balance.
func (e *EscrowLedger) Balance(ctx context.Context) (decimal.Decimal, error) {
	bal, err := e.reader.BalanceOf(ctx, e.account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("escrow.Balance: %w", err)
	}
	return bal, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Value movements
// ──────────────────────────────────────────────────────────────────────────────

// CollectStake pulls a stake from the bettor into escrow against the
// bettor's allowance.
func (e *EscrowLedger) CollectStake(ctx context.Context, tx store.Tx, from uuid.UUID, amount decimal.Decimal, activityID int64, at time.Time) error {
	if err := tx.TransferFrom(ctx, e.account, from, e.account, amount); err != nil {
		return err
	}
	return e.audit(ctx, tx, from, e.account, domain.TxStake, amount,
		"activity:"+strconv.FormatInt(activityID, 10), "stake escrowed", at)
}

// PayOut sends a settlement payout from escrow to a winner.
func (e *EscrowLedger) PayOut(ctx context.Context, tx store.Tx, to uuid.UUID, amount decimal.Decimal, ticketID int64, at time.Time) error {
	if err := tx.Transfer(ctx, e.account, to, amount); err != nil {
		return err
	}
	return e.audit(ctx, tx, e.account, to, domain.TxPayout, amount,
		"ticket:"+strconv.FormatInt(ticketID, 10), "settlement payout", at)
}

// SettleSale pays a resale price directly from buyer to seller. The escrow
// acts as spender, so the buyer must have approved it for at least price.
func (e *EscrowLedger) SettleSale(ctx context.Context, tx store.Tx, buyer, seller uuid.UUID, price decimal.Decimal, orderID int64, at time.Time) error {
	if err := tx.TransferFrom(ctx, e.account, buyer, seller, price); err != nil {
		return err
	}
	return e.audit(ctx, tx, buyer, seller, domain.TxSale, price,
		"order:"+strconv.FormatInt(orderID, 10), "ticket resale", at)
}

func (e *EscrowLedger) audit(ctx context.Context, tx store.Tx, from, to uuid.UUID, typ domain.TxType, amount decimal.Decimal, ref, desc string, at time.Time) error {
	txn := domain.NewTransaction(from, to, typ, amount, ref, desc, at)
	if err := tx.LogTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("escrow.audit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Ticket custody
// ──────────────────────────────────────────────────────────────────────────────

// HoldTicket moves a ticket from its owner into escrow custody.
func (e *EscrowLedger) HoldTicket(ctx context.Context, tx store.Tx, ticketID int64, owner uuid.UUID) error {
	return tx.MoveTicket(ctx, ticketID, owner, e.account)
}

// ReleaseTicket hands an escrowed ticket to to.
func (e *EscrowLedger) ReleaseTicket(ctx context.Context, tx store.Tx, ticketID int64, to uuid.UUID) error {
	return tx.MoveTicket(ctx, ticketID, e.account, to)
}
