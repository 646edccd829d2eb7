package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Transaction
// ──────────────────────────────────────────────────────────────────────────────

// TxType enumerates value movements for auditing.
type TxType string

const (
	TxStake  TxType = "stake"  // bettor → escrow
	TxPayout TxType = "payout" // escrow → winner
	TxSale   TxType = "sale"   // buyer → seller on order fill
	TxBonus  TxType = "bonus"  // registration bonus
	TxCredit TxType = "credit" // admin top-up
)

// Transaction is an immutable audit record. From is uuid.Nil for minted
// value (bonus, credit).
type Transaction struct {
	ID          uuid.UUID       `json:"id"          db:"id"`
	From        uuid.UUID       `json:"from"        db:"from_account"`
	To          uuid.UUID       `json:"to"          db:"to_account"`
	Type        TxType          `json:"type"        db:"type"`
	Amount      decimal.Decimal `json:"amount"      db:"amount"`
	Ref         string          `json:"ref"         db:"ref"` // activity/ticket/order id
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at"  db:"created_at"`
}

// NewTransaction builds an audit row with a fresh id.
func NewTransaction(from, to uuid.UUID, typ TxType, amount decimal.Decimal, ref, desc string, at time.Time) Transaction {
	return Transaction{
		ID:          uuid.New(),
		From:        from,
		To:          to,
		Type:        typ,
		Amount:      amount,
		Ref:         ref,
		Description: desc,
		CreatedAt:   at,
	}
}

// Involves reports whether account is either side of the movement.
func (t *Transaction) Involves(account uuid.UUID) bool {
	return t.From == account || t.To == account
}

// ──────────────────────────────────────────────────────────────────────────────
// Amount validation
// ──────────────────────────────────────────────────────────────────────────────

func wholePositive(d decimal.Decimal) bool {
	return d.IsPositive() && d.IsInteger()
}

// ValidateAmount accepts only positive whole units.
func ValidateAmount(d decimal.Decimal) error {
	if !wholePositive(d) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidatePrice is ValidateAmount for order prices.
func ValidatePrice(d decimal.Decimal) error {
	if !wholePositive(d) {
		return ErrInvalidPrice
	}
	return nil
}

// ParseAmount parses a decimal string from a request body.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
