package memstore

import (
	"context"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// tx is the store.Tx handed to WithTx callbacks. Every write records an undo
// closure; rollback replays them newest first.
type tx struct {
	*state
	undo []func()
}

var _ store.Tx = (*tx)(nil)

func (t *tx) onRollback(f func()) { t.undo = append(t.undo, f) }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// ── Activities ───────────────────────────────────────────────────────────────

func (t *tx) InsertActivity(_ context.Context, a *domain.Activity) error {
	a.ID = int64(len(t.activities))
	t.activities = append(t.activities, a.Clone())
	t.onRollback(func() { t.activities = t.activities[:len(t.activities)-1] })
	return nil
}

// LockActivity is a plain read; the writer lock already serialises the unit.
func (t *tx) LockActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	return t.GetActivity(ctx, id)
}

func (t *tx) UpdateActivity(_ context.Context, a *domain.Activity) error {
	if a.ID < 0 || a.ID >= int64(len(t.activities)) {
		return domain.ErrActivityNotFound
	}
	prev := t.activities[a.ID]
	t.activities[a.ID] = a.Clone()
	t.onRollback(func() { t.activities[a.ID] = prev })
	return nil
}

// ── Tickets ──────────────────────────────────────────────────────────────────

func (t *tx) InsertTicket(_ context.Context, tk *domain.Ticket) error {
	if tk.ActivityID < 0 || tk.ActivityID >= int64(len(t.activities)) {
		return domain.ErrActivityNotFound
	}
	tk.ID = int64(len(t.tickets))
	t.tickets = append(t.tickets, cloneTicket(tk))
	prevIdx := t.byActivity[tk.ActivityID]
	t.byActivity[tk.ActivityID] = append(append([]int64(nil), prevIdx...), tk.ID)
	t.onRollback(func() {
		t.tickets = t.tickets[:len(t.tickets)-1]
		if prevIdx == nil {
			delete(t.byActivity, tk.ActivityID)
		} else {
			t.byActivity[tk.ActivityID] = prevIdx
		}
	})
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (t *tx) InsertOrder(_ context.Context, o *domain.Order) error {
	o.ID = int64(len(t.orders))
	t.orders = append(t.orders, cloneOrder(o))
	t.onRollback(func() { t.orders = t.orders[:len(t.orders)-1] })
	return nil
}

func (t *tx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) UpdateOrder(_ context.Context, o *domain.Order) error {
	if o.ID < 0 || o.ID >= int64(len(t.orders)) {
		return domain.ErrOrderNotFound
	}
	prev := t.orders[o.ID]
	t.orders[o.ID] = cloneOrder(o)
	t.onRollback(func() { t.orders[o.ID] = prev })
	return nil
}

// ── Ticket registry ──────────────────────────────────────────────────────────

func (t *tx) MintTicket(_ context.Context, owner uuid.UUID, ticketID int64) error {
	if _, ok := t.owners[ticketID]; ok {
		return fmt.Errorf("memstore.MintTicket: ticket %d already minted", ticketID)
	}
	t.owners[ticketID] = owner
	t.onRollback(func() { delete(t.owners, ticketID) })
	return nil
}

func (t *tx) MoveTicket(_ context.Context, ticketID int64, from, to uuid.UUID) error {
	owner, ok := t.owners[ticketID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if owner != from {
		return domain.ErrNotOwner
	}
	t.owners[ticketID] = to
	t.onRollback(func() { t.owners[ticketID] = owner })
	return nil
}

// ── Value ledger ─────────────────────────────────────────────────────────────

func (t *tx) setBalance(account uuid.UUID, v decimal.Decimal) {
	prev, existed := t.balances[account]
	t.balances[account] = v
	t.onRollback(func() {
		if existed {
			t.balances[account] = prev
		} else {
			delete(t.balances, account)
		}
	})
}

func (t *tx) setAllowance(k allowanceKey, v decimal.Decimal) {
	prev, existed := t.allowances[k]
	t.allowances[k] = v
	t.onRollback(func() {
		if existed {
			t.allowances[k] = prev
		} else {
			delete(t.allowances, k)
		}
	})
}

func (t *tx) Approve(_ context.Context, owner, spender uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.ErrInvalidAmount
	}
	t.setAllowance(allowanceKey{owner, spender}, amount)
	return nil
}

func (t *tx) Transfer(_ context.Context, from, to uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.ErrInvalidAmount
	}
	bal := t.balances[from]
	if bal.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	t.setBalance(from, bal.Sub(amount))
	t.setBalance(to, t.balances[to].Add(amount))
	return nil
}

func (t *tx) TransferFrom(ctx context.Context, spender, from, to uuid.UUID, amount decimal.Decimal) error {
	k := allowanceKey{from, spender}
	allowed := t.allowances[k]
	if allowed.LessThan(amount) {
		return domain.ErrInsufficientAllowance
	}
	if err := t.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	t.setAllowance(k, allowed.Sub(amount))
	return nil
}

func (t *tx) Credit(_ context.Context, account uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	t.setBalance(account, t.balances[account].Add(amount))
	return nil
}

func (t *tx) LogTransaction(_ context.Context, txn *domain.Transaction) error {
	c := *txn
	t.transactions = append(t.transactions, &c)
	t.onRollback(func() { t.transactions = t.transactions[:len(t.transactions)-1] })
	return nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (t *tx) CreateUser(_ context.Context, u *domain.User) error {
	for _, existing := range t.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	c := cloneUser(u)
	t.users = append(t.users, c)
	t.usersByID[c.ID] = c
	t.onRollback(func() {
		t.users = t.users[:len(t.users)-1]
		delete(t.usersByID, c.ID)
	})
	return nil
}

func (t *tx) UpdateUserStatus(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := t.usersByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	prev := *u
	u.IsActive = active
	t.onRollback(func() { *u = prev })
	return nil
}

func (t *tx) UpdateUserRole(_ context.Context, id uuid.UUID, role domain.UserRole) error {
	u, ok := t.usersByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	prev := *u
	u.Role = role
	t.onRollback(func() { *u = prev })
	return nil
}
