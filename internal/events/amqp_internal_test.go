package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/streadway/amqp"
)

func TestNewAMQPMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := domain.NewEvent(domain.EventOrderFilled, domain.OrderFilledPayload{OrderID: 3}, at)

	msg, err := newAMQPMessage(evt)
	if err != nil {
		t.Fatalf("newAMQPMessage: %v", err)
	}
	if msg.Type != "order_filled" {
		t.Errorf("Type = %s, want order_filled", msg.Type)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %s, want %s", msg.Timestamp, at)
	}

	var body struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Type != "order_filled" || body.Payload["order_id"] != float64(3) {
		t.Errorf("body = %+v", body)
	}
}
