// Package scheduler runs the background expiry watcher. Activities expire
// purely by clock comparison; the watcher only announces the transition so
// observers learn that an activity is ready to settle. It never settles.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/easybet/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Activities interface — satisfied by *service.ActivityService
// ──────────────────────────────────────────────────────────────────────────────

// Activities is what the watcher needs from the activity registry.
type Activities interface {
	ListExpiredUnsettled(ctx context.Context) ([]*domain.Activity, error)
	AnnounceExpired(ctx context.Context, a *domain.Activity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler announces each expired, unsettled activity once per process.
type Scheduler struct {
	activities Activities
	interval   time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	announced map[int64]struct{}
}

// NewScheduler creates a Scheduler scanning every interval.
func NewScheduler(activities Activities, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		activities: activities,
		interval:   interval,
		logger:     logger.With("component", "scheduler"),
		announced:  make(map[int64]struct{}),
	}
}

// Run scans until ctx is cancelled. It always returns nil so it can sit in
// an errgroup next to the HTTP server.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("expiry watcher started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry watcher: shutting down")
			return nil
		case <-ticker.C:
			s.scanSafely(ctx)
		}
	}
}

// scanSafely is the loop body, extracted so the deferred recover catches
// panics without killing the loop.
func (s *Scheduler) scanSafely(ctx context.Context) {
	defer s.recoverAndLog("expiryLoop")
	if _, err := s.Scan(ctx); err != nil {
		s.logger.Error("expiry scan failed", "err", err)
	}
}

// Scan announces every activity that expired since the previous scan and
// returns how many it announced. Settled activities drop out of the
// bookkeeping set.
func (s *Scheduler) Scan(ctx context.Context) (int, error) {
	expired, err := s.activities.ListExpiredUnsettled(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	seen := make(map[int64]struct{}, len(expired))
	var fresh []*domain.Activity
	for _, a := range expired {
		seen[a.ID] = struct{}{}
		if _, ok := s.announced[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	s.announced = seen
	s.mu.Unlock()

	for _, a := range fresh {
		s.activities.AnnounceExpired(ctx, a)
		s.logger.Info("activity expired", "activity_id", a.ID, "deadline", a.Deadline, "total_pool", a.TotalPool)
	}
	return len(fresh), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop", "loop", loop, "panic", r)
	}
}
