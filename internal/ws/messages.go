// Package ws pushes committed domain events to browser clients over
// WebSocket. messages.go defines the frames written to each connection.
package ws

import (
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
)

// MsgType identifies the kind of frame so clients can switch on it.
// Event frames reuse the domain event type verbatim.
type MsgType string

const (
	MsgTypeWelcome MsgType = "welcome"
	MsgTypeError   MsgType = "error"
)

// EventMessage wraps one domain event. ActivityID is lifted out of the
// payload so clients can route frames without decoding the payload first.
type EventMessage struct {
	Type       domain.EventType `json:"type"`
	ActivityID *int64           `json:"activity_id,omitempty"`
	Payload    any              `json:"payload"`
	Timestamp  time.Time        `json:"timestamp"`
}

// WelcomeMessage is sent once to each client right after the upgrade.
type WelcomeMessage struct {
	Type       MsgType    `json:"type"`
	UserID     *uuid.UUID `json:"user_id,omitempty"` // nil for anonymous clients
	ActivityID *int64     `json:"activity_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

// activityOf extracts the activity an event concerns, if any. Order events
// carry only the ticket id and reach every subscriber.
func activityOf(evt domain.Event) (int64, bool) {
	switch p := evt.Payload.(type) {
	case domain.ActivityCreatedPayload:
		return p.ActivityID, true
	case domain.TicketPurchasedPayload:
		return p.ActivityID, true
	case domain.ActivitySettledPayload:
		return p.ActivityID, true
	case domain.ActivityExpiredPayload:
		return p.ActivityID, true
	}
	return 0, false
}

func newEventMessage(evt domain.Event) EventMessage {
	msg := EventMessage{Type: evt.Type, Payload: evt.Payload, Timestamp: evt.Timestamp}
	if id, ok := activityOf(evt); ok {
		msg.ActivityID = &id
	}
	return msg
}
