package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityService owns activity records: creation, pool accounting and reads.
// Only SettlementService writes settlement fields, and only through the same
// store.Tx contract.
type ActivityService struct {
	store store.Store
	clock Clock
	notifier
}

// NewActivityService creates an ActivityService.
func NewActivityService(st store.Store, clock Clock, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		store:    st,
		clock:    clock,
		notifier: notifier{log: logger},
	}
}

// SetPublisher injects the event sink post-construction.
func (s *ActivityService) SetPublisher(p Publisher) { s.pub = p }

// Now exposes the service clock to handlers that derive state for display.
func (s *ActivityService) Now() time.Time { return s.clock.Now() }

// ──────────────────────────────────────────────────────────────────────────────
// CreateActivity
// ──────────────────────────────────────────────────────────────────────────────

// CreateActivity validates the configuration and allocates a new activity
// with an empty pool. creator becomes the only account allowed to settle it.
func (s *ActivityService) CreateActivity(ctx context.Context, creator uuid.UUID, name string, choices []string, odds []int64, duration time.Duration) (*domain.Activity, error) {
	now := s.clock.Now()
	a, err := domain.NewActivity(creator, name, choices, odds, now, duration)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertActivity(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("activity_service.CreateActivity: insert: %w", err)
	}

	s.emit(ctx, domain.EventActivityCreated, domain.ActivityCreatedPayload{
		ActivityID: a.ID,
		Creator:    a.Creator,
		Name:       a.Name,
		Choices:    a.Choices,
		Odds:       a.Odds,
		Deadline:   a.Deadline,
	}, now)
	return a, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// recordStake — called by TicketService inside its transaction
// ──────────────────────────────────────────────────────────────────────────────

// lockOpen locks the activity and runs the single state dispatch check.
func (s *ActivityService) lockOpen(ctx context.Context, tx store.Tx, activityID int64, choice int, now time.Time) (*domain.Activity, error) {
	a, err := tx.LockActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := a.CheckStake(now, choice); err != nil {
		return nil, err
	}
	return a, nil
}

// recordStake adds amount to the pool and to choiceAmounts[choice] in one
// write, so no reader ever sees one without the other.
func (s *ActivityService) recordStake(ctx context.Context, tx store.Tx, activityID int64, choice int, amount decimal.Decimal, now time.Time) (*domain.Activity, error) {
	a, err := s.lockOpen(ctx, tx, activityID, choice, now)
	if err != nil {
		return nil, err
	}
	a.ApplyStake(choice, amount)
	if err := tx.UpdateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("activity_service.recordStake: update: %w", err)
	}
	return a, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetActivity returns one activity.
func (s *ActivityService) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	return s.store.GetActivity(ctx, id)
}

// GetChoiceAmount returns the cumulative stake on one choice.
func (s *ActivityService) GetChoiceAmount(ctx context.Context, id int64, choice int) (decimal.Decimal, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if !a.ValidChoice(choice) {
		return decimal.Zero, domain.ErrInvalidChoice
	}
	return a.ChoiceAmounts[choice], nil
}

// ActivityCount returns how many activities have ever been created.
func (s *ActivityService) ActivityCount(ctx context.Context) (int64, error) {
	return s.store.CountActivities(ctx)
}

// ChoiceCount returns how many tickets have been bought on one choice.
func (s *ActivityService) ChoiceCount(ctx context.Context, activityID int64, choice int) (int, error) {
	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return 0, err
	}
	if !a.ValidChoice(choice) {
		return 0, domain.ErrInvalidChoice
	}
	tickets, err := s.store.ListTicketsByActivity(ctx, activityID)
	if err != nil {
		return 0, fmt.Errorf("activity_service.ChoiceCount: %w", err)
	}
	n := 0
	for _, t := range tickets {
		if t.Choice == choice {
			n++
		}
	}
	return n, nil
}

// ListActivities returns a page of activities, newest first, plus the total.
func (s *ActivityService) ListActivities(ctx context.Context, limit, offset int) ([]*domain.Activity, int64, error) {
	limit, offset = clampPage(limit, offset)
	list, err := s.store.ListActivities(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("activity_service.ListActivities: %w", err)
	}
	total, err := s.store.CountActivities(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("activity_service.ListActivities: count: %w", err)
	}
	return list, total, nil
}

// ListExpiredUnsettled returns activities past their deadline that nobody
// has settled yet.
func (s *ActivityService) ListExpiredUnsettled(ctx context.Context) ([]*domain.Activity, error) {
	list, err := s.store.ListExpiredUnsettled(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("activity_service.ListExpiredUnsettled: %w", err)
	}
	return list, nil
}

// AnnounceExpired publishes activity_expired for one activity. Used by the
// expiry watcher; it never changes state.
func (s *ActivityService) AnnounceExpired(ctx context.Context, a *domain.Activity) {
	s.emit(ctx, domain.EventActivityExpired, domain.ActivityExpiredPayload{
		ActivityID: a.ID,
		Deadline:   a.Deadline,
		TotalPool:  a.TotalPool,
	}, s.clock.Now())
}

// StateCounts tallies activities per lifecycle state for the dashboard.
func (s *ActivityService) StateCounts(ctx context.Context) (map[domain.ActivityState]int, error) {
	counts := map[domain.ActivityState]int{
		domain.StateOpen:    0,
		domain.StateExpired: 0,
		domain.StateSettled: 0,
	}
	now := s.clock.Now()
	err := s.eachActivity(ctx, func(a *domain.Activity) {
		counts[a.StateAt(now)]++
	})
	if err != nil {
		return nil, fmt.Errorf("activity_service.StateCounts: %w", err)
	}
	return counts, nil
}

// ListByState returns a page of the activities currently in state, oldest
// first, plus how many match overall.
func (s *ActivityService) ListByState(ctx context.Context, state domain.ActivityState, limit, offset int) ([]*domain.Activity, int, error) {
	limit, offset = clampPage(limit, offset)
	now := s.clock.Now()
	var (
		page  []*domain.Activity
		total int
	)
	err := s.eachActivity(ctx, func(a *domain.Activity) {
		if a.StateAt(now) != state {
			return
		}
		if total >= offset && len(page) < limit {
			page = append(page, a)
		}
		total++
	})
	if err != nil {
		return nil, 0, fmt.Errorf("activity_service.ListByState: %w", err)
	}
	return page, total, nil
}

// PoolTotals aggregates pool money across every activity. Escrow should hold
// exactly Unsettled plus Residual.
type PoolTotals struct {
	Unsettled   decimal.Decimal `json:"unsettled"`   // stakes on activities not yet settled
	Distributed decimal.Decimal `json:"distributed"` // paid out by settlements
	Residual    decimal.Decimal `json:"residual"`    // settled but left in escrow
}

// Totals walks every activity and sums its pool money. A settled activity's
// TotalPool is what settlement left behind.
func (s *ActivityService) Totals(ctx context.Context) (PoolTotals, error) {
	var t PoolTotals
	err := s.eachActivity(ctx, func(a *domain.Activity) {
		if !a.Settled {
			t.Unsettled = t.Unsettled.Add(a.TotalPool)
			return
		}
		t.Distributed = t.Distributed.Add(a.Distributed)
		t.Residual = t.Residual.Add(a.TotalPool)
	})
	if err != nil {
		return PoolTotals{}, fmt.Errorf("activity_service.Totals: %w", err)
	}
	return t, nil
}

// eachActivity visits every activity that existed when the walk started,
// oldest first. Ids are dense from 0, so the walk is by id and activities
// created meanwhile are neither skipped nor visited twice.
func (s *ActivityService) eachActivity(ctx context.Context, fn func(*domain.Activity)) error {
	n, err := s.store.CountActivities(ctx)
	if err != nil {
		return err
	}
	for id := int64(0); id < n; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, err := s.store.GetActivity(ctx, id)
		if err != nil {
			return fmt.Errorf("activity %d: %w", id, err)
		}
		fn(a)
	}
	return nil
}
