package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketService issues tickets and answers custody questions. Ticket rows
// are write-once; custody lives in the store's ticket registry.
type TicketService struct {
	store      store.Store
	activities *ActivityService
	escrow     *EscrowLedger
	clock      Clock
	notifier
}

// NewTicketService creates a TicketService.
func NewTicketService(st store.Store, activities *ActivityService, escrow *EscrowLedger, clock Clock, logger *slog.Logger) *TicketService {
	return &TicketService{
		store:      st,
		activities: activities,
		escrow:     escrow,
		clock:      clock,
		notifier:   notifier{log: logger},
	}
}

// SetPublisher injects the event sink post-construction.
func (s *TicketService) SetPublisher(p Publisher) { s.pub = p }

// ──────────────────────────────────────────────────────────────────────────────
// BuyTicket
// ──────────────────────────────────────────────────────────────────────────────

// BuyTicket stakes amount on choice for buyer. In one transaction it checks
// the activity is open, pulls the stake into escrow against the buyer's
// allowance, records it on the pool, writes the ticket with the odds of the
// moment, and mints custody to the buyer. Any failure leaves no trace.
func (s *TicketService) BuyTicket(ctx context.Context, activityID int64, choice int, stake decimal.Decimal, buyer uuid.UUID) (*domain.Ticket, error) {
	if err := domain.ValidateAmount(stake); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		ticket   *domain.Ticket
		activity *domain.Activity
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		// ── 1. Activity pre-checks ───────────────────────────────────────────
		if _, err := s.activities.lockOpen(ctx, tx, activityID, choice, now); err != nil {
			return err
		}

		// ── 2. Escrow the stake ──────────────────────────────────────────────
		if err := s.escrow.CollectStake(ctx, tx, buyer, stake, activityID, now); err != nil {
			return err
		}

		// ── 3. Pool accounting ───────────────────────────────────────────────
		a, err := s.activities.recordStake(ctx, tx, activityID, choice, stake, now)
		if err != nil {
			return err
		}
		activity = a

		// ── 4. Ticket metadata with locked odds ──────────────────────────────
		ticket = &domain.Ticket{
			ActivityID:  activityID,
			Choice:      choice,
			Stake:       stake,
			LockedOdds:  a.Odds[choice],
			PurchasedAt: now,
		}
		if err := tx.InsertTicket(ctx, ticket); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		// ── 5. Custody ───────────────────────────────────────────────────────
		if err := tx.MintTicket(ctx, buyer, ticket.ID); err != nil {
			return fmt.Errorf("mint ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("ticket_service.BuyTicket", err)
	}

	s.emit(ctx, domain.EventTicketPurchased, domain.TicketPurchasedPayload{
		TicketID:   ticket.ID,
		ActivityID: activityID,
		Buyer:      buyer,
		Choice:     choice,
		Stake:      stake,
		LockedOdds: ticket.LockedOdds,
		TotalPool:  activity.TotalPool,
	}, now)
	return ticket, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetTicket returns the immutable ticket record.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

// GetTicketInfo returns the ticket together with its current holder.
func (s *TicketService) GetTicketInfo(ctx context.Context, id int64) (*domain.TicketInfo, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.OwnerOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ticket_service.GetTicketInfo: owner: %w", err)
	}
	return &domain.TicketInfo{Ticket: *t, Owner: owner}, nil
}

// TicketsOf lists the tickets an account currently holds.
func (s *TicketService) TicketsOf(ctx context.Context, owner uuid.UUID) ([]*domain.Ticket, error) {
	ids, err := s.store.TicketsOwnedBy(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("ticket_service.TicketsOf: %w", err)
	}
	out := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		t, err := s.store.GetTicket(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ticket_service.TicketsOf: ticket %d: %w", id, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// TicketsForActivity lists every ticket sold on an activity with its holder.
func (s *TicketService) TicketsForActivity(ctx context.Context, activityID int64) ([]*domain.TicketInfo, error) {
	if _, err := s.store.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTicketsByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("ticket_service.TicketsForActivity: %w", err)
	}
	out := make([]*domain.TicketInfo, 0, len(tickets))
	for _, t := range tickets {
		owner, err := s.store.OwnerOf(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("ticket_service.TicketsForActivity: owner %d: %w", t.ID, err)
		}
		out = append(out, &domain.TicketInfo{Ticket: *t, Owner: owner})
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// TransferTicket
// ──────────────────────────────────────────────────────────────────────────────

// TransferTicket moves custody directly from one account to another. Stake
// and odds stay on the ticket. Escrow custody is reserved for the order book.
func (s *TicketService) TransferTicket(ctx context.Context, ticketID int64, from, to uuid.UUID) error {
	if to == s.escrow.Account() || to == uuid.Nil {
		return domain.ErrForbidden
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		return tx.MoveTicket(ctx, ticketID, from, to)
	})
	return wrapTx("ticket_service.TransferTicket", err)
}
