package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// BalanceOf returns the account balance; unknown accounts hold zero.
func (r *queries) BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &bal, `SELECT balance FROM accounts WHERE id = $1`, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ledger_repo.BalanceOf: %w", err)
	}
	return bal, nil
}

// Allowance returns what spender may still move out of owner's account.
func (r *queries) Allowance(ctx context.Context, owner, spender uuid.UUID) (decimal.Decimal, error) {
	var amt decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &amt,
		`SELECT amount FROM allowances WHERE owner = $1 AND spender = $2`+r.lock(), owner, spender)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ledger_repo.Allowance: %w", err)
	}
	return amt, nil
}

// Transactions returns the account's audit rows, newest first.
func (r *queries) Transactions(ctx context.Context, account uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	txs := []*domain.Transaction{}
	if err := sqlx.SelectContext(ctx, r.q, &txs, `
		SELECT id, from_account, to_account, type, amount, ref, description, created_at
		FROM transactions
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, account, limitArg(limit), offset); err != nil {
		return nil, fmt.Errorf("ledger_repo.Transactions: %w", err)
	}
	return txs, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Writes
// ──────────────────────────────────────────────────────────────────────────────

// Approve sets (not adds to) the allowance owner grants spender.
func (t *Tx) Approve(ctx context.Context, owner, spender uuid.UUID, amount decimal.Decimal) error {
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO allowances (owner, spender, amount) VALUES ($1, $2, $3)
		ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		owner, spender, amount); err != nil {
		return fmt.Errorf("ledger_repo.Approve: %w", err)
	}
	return nil
}

// Credit mints value into an account.
func (t *Tx) Credit(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error {
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = now()`,
		account, amount); err != nil {
		return fmt.Errorf("ledger_repo.Credit: %w", err)
	}
	return nil
}

// lockAccounts makes sure both rows exist and locks them in id order so two
// opposite transfers cannot deadlock.
func (t *Tx) lockAccounts(ctx context.Context, a, b uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO accounts (id) VALUES ($1), ($2)
		ON CONFLICT (id) DO NOTHING`, a, b); err != nil {
		return nil, fmt.Errorf("ensure accounts: %w", err)
	}

	var rows []struct {
		ID      uuid.UUID       `db:"id"`
		Balance decimal.Decimal `db:"balance"`
	}
	if err := sqlx.SelectContext(ctx, t.q, &rows, `
		SELECT id, balance FROM accounts
		WHERE id IN ($1, $2)
		ORDER BY id
		FOR UPDATE`, a, b); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Balance
	}
	return out, nil
}

// Transfer moves amount from one account to another.
func (t *Tx) Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error {
	balances, err := t.lockAccounts(ctx, from, to)
	if err != nil {
		return fmt.Errorf("ledger_repo.Transfer: %w", err)
	}
	if balances[from].LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}

	if _, err := t.q.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = now() WHERE id = $2`,
		amount, from); err != nil {
		return fmt.Errorf("ledger_repo.Transfer: debit: %w", err)
	}
	if _, err := t.q.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = now() WHERE id = $2`,
		amount, to); err != nil {
		return fmt.Errorf("ledger_repo.Transfer: credit: %w", err)
	}
	return nil
}

// TransferFrom moves amount out of from on behalf of spender, consuming the
// allowance.
func (t *Tx) TransferFrom(ctx context.Context, spender, from, to uuid.UUID, amount decimal.Decimal) error {
	allowed, err := t.Allowance(ctx, from, spender)
	if err != nil {
		return fmt.Errorf("ledger_repo.TransferFrom: %w", err)
	}
	if allowed.LessThan(amount) {
		return domain.ErrInsufficientAllowance
	}
	if err := t.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	if _, err := t.q.ExecContext(ctx,
		`UPDATE allowances SET amount = amount - $1 WHERE owner = $2 AND spender = $3`,
		amount, from, spender); err != nil {
		return fmt.Errorf("ledger_repo.TransferFrom: allowance: %w", err)
	}
	return nil
}

// LogTransaction appends an audit row.
func (t *Tx) LogTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, from_account, to_account, type, amount, ref, description, created_at)
		VALUES (:id, :from_account, :to_account, :type, :amount, :ref, :description, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, t.q, query, tx); err != nil {
		return fmt.Errorf("ledger_repo.LogTransaction: %w", err)
	}
	return nil
}
