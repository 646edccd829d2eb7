package events

import (
	"context"
	"log/slog"

	"github.com/evetabi/easybet/internal/domain"
)

// LogPublisher writes every event to the structured log. It is always
// attached so the event trail survives when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher falls back to slog.Default when logger is nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{log: logger}
}

// Publish implements Sink.
func (p *LogPublisher) Publish(ctx context.Context, evt domain.Event) error {
	p.log.InfoContext(ctx, "event",
		"type", evt.Type,
		"payload", evt.Payload,
		"timestamp", evt.Timestamp,
	)
	return nil
}
