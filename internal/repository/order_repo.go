package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/jmoiron/sqlx"
)

const orderCols = `id, ticket_id, seller, price, active, status, buyer, created_at, closed_at`

func (r *queries) getOrder(ctx context.Context, id int64, op string) (*domain.Order, error) {
	var o domain.Order
	err := sqlx.GetContext(ctx, r.q, &o,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`+r.lock(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order_repo.%s: %w", op, err)
	}
	return &o, nil
}

// GetOrder fetches an order by id.
func (r *queries) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOrder(ctx, id, "GetOrder")
}

// LockOrder reads the order row FOR UPDATE.
func (t *Tx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return t.getOrder(ctx, id, "LockOrder")
}

// ListActiveOrdersByTicket returns the open listings for one ticket.
func (r *queries) ListActiveOrdersByTicket(ctx context.Context, ticketID int64) ([]*domain.Order, error) {
	var orders []*domain.Order
	if err := sqlx.SelectContext(ctx, r.q, &orders,
		`SELECT `+orderCols+` FROM orders WHERE active AND ticket_id = $1 ORDER BY id`, ticketID); err != nil {
		return nil, fmt.Errorf("order_repo.ListActiveOrdersByTicket: %w", err)
	}
	return orders, nil
}

// ListActiveOrders returns a page of open listings in id order.
func (r *queries) ListActiveOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	if err := sqlx.SelectContext(ctx, r.q, &orders,
		`SELECT `+orderCols+` FROM orders WHERE active ORDER BY id LIMIT $1 OFFSET $2`,
		limitArg(limit), offset); err != nil {
		return nil, fmt.Errorf("order_repo.ListActiveOrders: %w", err)
	}
	return orders, nil
}

// InsertOrder allocates the next order id and writes the row.
func (t *Tx) InsertOrder(ctx context.Context, o *domain.Order) error {
	id, err := t.nextID(ctx, "orders")
	if err != nil {
		return fmt.Errorf("order_repo.InsertOrder: %w", err)
	}
	o.ID = id

	query := `
		INSERT INTO orders (` + orderCols + `)
		VALUES (:id, :ticket_id, :seller, :price, :active, :status, :buyer, :created_at, :closed_at)`
	if _, err := sqlx.NamedExecContext(ctx, t.q, query, o); err != nil {
		return fmt.Errorf("order_repo.InsertOrder: %w", err)
	}
	return nil
}

// UpdateOrder persists the order's terminal state.
func (t *Tx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE orders SET active = $1, status = $2, buyer = $3, closed_at = $4
		WHERE id = $5`,
		o.Active, string(o.Status), o.Buyer, o.ClosedAt, o.ID)
	if err != nil {
		return fmt.Errorf("order_repo.UpdateOrder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
