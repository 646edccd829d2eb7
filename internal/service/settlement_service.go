package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
)

// SettlementService resolves expired activities and pays winners from the
// escrowed pool.
type SettlementService struct {
	store  store.Store
	escrow *EscrowLedger
	clock  Clock
	notifier
}

// NewSettlementService builds a SettlementService.
func NewSettlementService(st store.Store, escrow *EscrowLedger, clock Clock, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:    st,
		escrow:   escrow,
		clock:    clock,
		notifier: notifier{log: logger},
	}
}

// SetPublisher injects the event sink post-construction.
func (s *SettlementService) SetPublisher(p Publisher) { s.pub = p }

// ──────────────────────────────────────────────────────────────────────────────
// Settle
// ──────────────────────────────────────────────────────────────────────────────

// Settle resolves activityID with winningChoice on behalf of caller. Claims
// are stake*lockedOdds/100; when they exceed the pool each payout is scaled
// to pool*claim/totalClaims. Payouts, the settled flag and the pool decrease
// commit together; if any payout transfer fails nothing is written.
func (s *SettlementService) Settle(ctx context.Context, activityID int64, winningChoice int, caller uuid.UUID) (*domain.Settlement, error) {
	now := s.clock.Now()
	var result *domain.Settlement

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if err := a.CheckSettle(now, caller, winningChoice); err != nil {
			return err
		}

		plan, err := s.plan(ctx, tx, a, winningChoice)
		if err != nil {
			return err
		}

		for _, p := range plan.Payouts {
			if p.Amount.IsZero() {
				continue
			}
			if err := s.escrow.PayOut(ctx, tx, p.Beneficiary, p.Amount, p.TicketID, now); err != nil {
				return fmt.Errorf("payout ticket %d: %w", p.TicketID, err)
			}
		}

		choice := winningChoice
		settledAt := now
		a.Settled = true
		a.WinningChoice = &choice
		a.SettledAt = &settledAt
		a.Distributed = plan.Distributed
		a.TotalPool = a.TotalPool.Sub(plan.Distributed)
		if err := tx.UpdateActivity(ctx, a); err != nil {
			return fmt.Errorf("mark settled: %w", err)
		}

		result = &domain.Settlement{ActivityID: a.ID, WinningChoice: winningChoice, PayoutPlan: plan}
		return nil
	})
	if err != nil {
		return nil, wrapTx("settlement_service.Settle", err)
	}

	s.logger().Info("activity settled",
		"activity_id", activityID,
		"winning_choice", winningChoice,
		"winners", len(result.Payouts),
		"distributed", result.Distributed.String(),
		"residual", result.Residual.String(),
	)
	s.emit(ctx, domain.EventActivitySettled, domain.ActivitySettledPayload{
		ActivityID:       activityID,
		WinningChoice:    winningChoice,
		Winners:          len(result.Payouts),
		TotalDistributed: result.Distributed,
		Residual:         result.Residual,
	}, now)
	return result, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Preview
// ──────────────────────────────────────────────────────────────────────────────

// Preview computes the payout table Settle would produce right now without
// writing anything. It does not require the deadline to have passed.
func (s *SettlementService) Preview(ctx context.Context, activityID int64, winningChoice int) (*domain.Settlement, error) {
	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a.Settled {
		return nil, domain.ErrAlreadySettled
	}
	if !a.ValidChoice(winningChoice) {
		return nil, domain.ErrInvalidChoice
	}
	plan, err := s.plan(ctx, s.store, a, winningChoice)
	if err != nil {
		return nil, wrapTx("settlement_service.Preview", err)
	}
	return &domain.Settlement{ActivityID: a.ID, WinningChoice: winningChoice, PayoutPlan: plan}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Claim collection
// ──────────────────────────────────────────────────────────────────────────────

// plan visits every winning ticket exactly once, in ticket id order.
func (s *SettlementService) plan(ctx context.Context, r store.Reader, a *domain.Activity, winningChoice int) (domain.PayoutPlan, error) {
	tickets, err := r.ListTicketsByActivity(ctx, a.ID)
	if err != nil {
		return domain.PayoutPlan{}, fmt.Errorf("list tickets: %w", err)
	}

	var claims []domain.Claim
	for _, t := range tickets {
		if t.Choice != winningChoice {
			continue
		}
		beneficiary, err := s.beneficiary(ctx, r, t.ID)
		if err != nil {
			return domain.PayoutPlan{}, err
		}
		claims = append(claims, domain.Claim{
			TicketID:    t.ID,
			Beneficiary: beneficiary,
			Amount:      t.Claim(),
		})
	}
	return domain.ComputePayouts(a.TotalPool, claims), nil
}

// beneficiary is the ticket's current holder, or the seller when the ticket
// is parked in escrow behind an active order.
func (s *SettlementService) beneficiary(ctx context.Context, r store.Reader, ticketID int64) (uuid.UUID, error) {
	owner, err := r.OwnerOf(ctx, ticketID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("owner of ticket %d: %w", ticketID, err)
	}
	if owner != s.escrow.Account() {
		return owner, nil
	}
	orders, err := r.ListActiveOrdersByTicket(ctx, ticketID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("orders for ticket %d: %w", ticketID, err)
	}
	if len(orders) == 0 {
		return owner, nil
	}
	return orders[0].Seller, nil
}
