package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const ticketCols = `id, activity_id, choice, stake, locked_odds, purchased_at`

// GetTicket fetches a ticket by id.
func (r *queries) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := sqlx.GetContext(ctx, r.q, &t, `SELECT `+ticketCols+` FROM tickets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket_repo.GetTicket: %w", err)
	}
	return &t, nil
}

// ListTicketsByActivity returns every ticket sold on an activity in id order.
func (r *queries) ListTicketsByActivity(ctx context.Context, activityID int64) ([]*domain.Ticket, error) {
	tickets := []*domain.Ticket{}
	if err := sqlx.SelectContext(ctx, r.q, &tickets,
		`SELECT `+ticketCols+` FROM tickets WHERE activity_id = $1 ORDER BY id`, activityID); err != nil {
		return nil, fmt.Errorf("ticket_repo.ListTicketsByActivity: %w", err)
	}
	return tickets, nil
}

// InsertTicket allocates the next ticket id and writes the row.
func (t *Tx) InsertTicket(ctx context.Context, tk *domain.Ticket) error {
	id, err := t.nextID(ctx, "tickets")
	if err != nil {
		return fmt.Errorf("ticket_repo.InsertTicket: %w", err)
	}
	tk.ID = id

	query := `
		INSERT INTO tickets (` + ticketCols + `)
		VALUES (:id, :activity_id, :choice, :stake, :locked_odds, :purchased_at)`
	if _, err := sqlx.NamedExecContext(ctx, t.q, query, tk); err != nil {
		return fmt.Errorf("ticket_repo.InsertTicket: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Custody registry
// ──────────────────────────────────────────────────────────────────────────────

// MintTicket records the first holder of a freshly inserted ticket.
func (t *Tx) MintTicket(ctx context.Context, owner uuid.UUID, ticketID int64) error {
	if _, err := t.q.ExecContext(ctx,
		`INSERT INTO ticket_owners (ticket_id, owner) VALUES ($1, $2)`, ticketID, owner); err != nil {
		return fmt.Errorf("ticket_repo.MintTicket: %w", err)
	}
	return nil
}

// MoveTicket changes custody from one holder to another. It fails with
// ErrNotOwner when from does not hold the ticket.
func (t *Tx) MoveTicket(ctx context.Context, ticketID int64, from, to uuid.UUID) error {
	var owner uuid.UUID
	err := sqlx.GetContext(ctx, t.q, &owner,
		`SELECT owner FROM ticket_owners WHERE ticket_id = $1 FOR UPDATE`, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTicketNotFound
		}
		return fmt.Errorf("ticket_repo.MoveTicket: lock: %w", err)
	}
	if owner != from {
		return domain.ErrNotOwner
	}
	if _, err := t.q.ExecContext(ctx,
		`UPDATE ticket_owners SET owner = $1 WHERE ticket_id = $2`, to, ticketID); err != nil {
		return fmt.Errorf("ticket_repo.MoveTicket: update: %w", err)
	}
	return nil
}

// OwnerOf returns the current holder of a ticket.
func (r *queries) OwnerOf(ctx context.Context, ticketID int64) (uuid.UUID, error) {
	var owner uuid.UUID
	err := sqlx.GetContext(ctx, r.q, &owner,
		`SELECT owner FROM ticket_owners WHERE ticket_id = $1`, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrTicketNotFound
		}
		return uuid.Nil, fmt.Errorf("ticket_repo.OwnerOf: %w", err)
	}
	return owner, nil
}

// TicketsOwnedBy lists the ids held by an account in ascending order.
func (r *queries) TicketsOwnedBy(ctx context.Context, owner uuid.UUID) ([]int64, error) {
	ids := []int64{}
	if err := sqlx.SelectContext(ctx, r.q, &ids,
		`SELECT ticket_id FROM ticket_owners WHERE owner = $1 ORDER BY ticket_id`, owner); err != nil {
		return nil, fmt.Errorf("ticket_repo.TicketsOwnedBy: %w", err)
	}
	return ids, nil
}
