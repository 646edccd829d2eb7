package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// window clamps limit/offset to a slice of length n. limit <= 0 means all.
func window(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	return &c
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.Buyer != nil {
		b := *o.Buyer
		c.Buyer = &b
	}
	if o.ClosedAt != nil {
		at := *o.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// ── Activities ───────────────────────────────────────────────────────────────

func (s *state) GetActivity(_ context.Context, id int64) (*domain.Activity, error) {
	if id < 0 || id >= int64(len(s.activities)) {
		return nil, domain.ErrActivityNotFound
	}
	return s.activities[id].Clone(), nil
}

func (s *state) CountActivities(_ context.Context) (int64, error) {
	return int64(len(s.activities)), nil
}

// ListActivities returns newest first.
func (s *state) ListActivities(_ context.Context, limit, offset int) ([]*domain.Activity, error) {
	n := len(s.activities)
	start, end := window(n, limit, offset)
	out := make([]*domain.Activity, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, s.activities[n-1-i].Clone())
	}
	return out, nil
}

func (s *state) ListExpiredUnsettled(_ context.Context, now time.Time) ([]*domain.Activity, error) {
	var out []*domain.Activity
	for _, a := range s.activities {
		if a.StateAt(now) == domain.StateExpired {
			out = append(out, a.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

// ── Tickets ──────────────────────────────────────────────────────────────────

func (s *state) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	if id < 0 || id >= int64(len(s.tickets)) {
		return nil, domain.ErrTicketNotFound
	}
	return cloneTicket(s.tickets[id]), nil
}

func (s *state) ListTicketsByActivity(_ context.Context, activityID int64) ([]*domain.Ticket, error) {
	ids := s.byActivity[activityID]
	out := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneTicket(s.tickets[id]))
	}
	return out, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *state) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	if id < 0 || id >= int64(len(s.orders)) {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(s.orders[id]), nil
}

func (s *state) ListActiveOrdersByTicket(_ context.Context, ticketID int64) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.orders {
		if o.Active && o.TicketID == ticketID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (s *state) ListActiveOrders(_ context.Context, limit, offset int) ([]*domain.Order, error) {
	var active []*domain.Order
	for _, o := range s.orders {
		if o.Active {
			active = append(active, o)
		}
	}
	start, end := window(len(active), limit, offset)
	out := make([]*domain.Order, 0, end-start)
	for _, o := range active[start:end] {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

// ── Ticket registry ──────────────────────────────────────────────────────────

func (s *state) OwnerOf(_ context.Context, ticketID int64) (uuid.UUID, error) {
	owner, ok := s.owners[ticketID]
	if !ok {
		return uuid.Nil, domain.ErrTicketNotFound
	}
	return owner, nil
}

func (s *state) TicketsOwnedBy(_ context.Context, owner uuid.UUID) ([]int64, error) {
	ids := []int64{}
	for id, o := range s.owners {
		if o == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ── Value ledger ─────────────────────────────────────────────────────────────

func (s *state) BalanceOf(_ context.Context, account uuid.UUID) (decimal.Decimal, error) {
	return s.balances[account], nil
}

func (s *state) Allowance(_ context.Context, owner, spender uuid.UUID) (decimal.Decimal, error) {
	return s.allowances[allowanceKey{owner, spender}], nil
}

// Transactions returns the account's audit rows, newest first.
func (s *state) Transactions(_ context.Context, account uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].Involves(account) {
			matched = append(matched, s.transactions[i])
		}
	}
	start, end := window(len(matched), limit, offset)
	out := make([]*domain.Transaction, 0, end-start)
	for _, t := range matched[start:end] {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *state) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.usersByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *state) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ListUsers returns newest first along with the total count.
func (s *state) ListUsers(_ context.Context, limit, offset int) ([]*domain.User, int, error) {
	n := len(s.users)
	start, end := window(n, limit, offset)
	out := make([]*domain.User, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, cloneUser(s.users[n-1-i]))
	}
	return out, n, nil
}
