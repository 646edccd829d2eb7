// Package events delivers committed domain events to outward sinks: the
// WebSocket hub, a RabbitMQ topic exchange, Redis pub/sub plus a capped
// stream, and the structured log.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
)

// Sink receives every event after the operation that produced it commits.
type Sink interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// Fanout publishes each event to every sink in order. One failing sink does
// not stop delivery to the rest; the failures are joined and returned.
type Fanout struct {
	sinks []Sink
}

// NewFanout skips nil sinks so optional transports can be passed through
// unconditionally.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add appends a sink after construction.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Len reports the number of attached sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish implements service.Publisher.
func (f *Fanout) Publish(ctx context.Context, evt domain.Event) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("sink %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}
