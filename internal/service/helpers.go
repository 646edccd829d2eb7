package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/easybet/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Clock
// ──────────────────────────────────────────────────────────────────────────────

// Clock supplies the current time for deadline comparisons.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ──────────────────────────────────────────────────────────────────────────────
// Event publishing
// ──────────────────────────────────────────────────────────────────────────────

// Publisher is the minimal interface services need from the event sinks.
// Implemented by events.Fanout and ws.Hub.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

const publishTimeout = 5 * time.Second

// notifier publishes after commit. A failed publish is logged and never
// reported to the caller: the operation it describes is already durable.
type notifier struct {
	pub Publisher
	log *slog.Logger
}

func (n *notifier) emit(ctx context.Context, typ domain.EventType, payload any, at time.Time) {
	if n.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.pub.Publish(ctx, domain.NewEvent(typ, payload, at)); err != nil {
		n.logger().Warn("event publish failed", "type", typ, "error", err)
	}
}

func (n *notifier) logger() *slog.Logger {
	if n.log == nil {
		return slog.Default()
	}
	return n.log
}

// clampPage keeps list limits within [1, 100], like the API pagination.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// wrapTx prefixes infrastructure failures with the operation name and lets
// domain sentinels through untouched so handlers can map them.
func wrapTx(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainError(err error) bool {
	return domain.IsNotFound(err) ||
		domain.IsAuthError(err) ||
		domain.IsInvalidInput(err) ||
		domain.IsStateConflict(err) ||
		domain.IsFundsError(err)
}
