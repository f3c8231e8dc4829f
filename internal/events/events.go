// Package events publishes order lifecycle events for downstream
// consumers (notifications, analytics, fulfilment). Publishing is
// best-effort: a broker failure is logged and never fails the business
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderPlaced     = "order.placed"
	TypeOrderConfirmed  = "order.confirmed"
	TypeOrderShipped    = "order.shipped"
	TypeOrderDelivered  = "order.delivered"
	TypeOrderCancelled  = "order.cancelled"
	TypeOrderRefunded   = "order.refunded"
	TypePaymentReceived = "payment.received"
)

// Envelope is the wire format. All events for one order share the order
// ID as partition key so consumers observe them in order.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	OrderID    string          `json:"order_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload, assigning the event ID and timestamp.
func NewEnvelope(eventType, producer, orderID string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = b
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   producer,
		OrderID:    orderID,
		Payload:    raw,
	}, nil
}

// Publisher delivers envelopes to whatever transport is configured.
type Publisher interface {
	Publish(ctx context.Context, env Envelope)
	Close() error
}

// Nop drops every event; used in tests and when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) {}
func (Nop) Close() error                      { return nil }
