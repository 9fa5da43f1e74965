package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated = "OrderCreated"

	// routing key / pattern used on the broker
	TopicOrderCreated = "order.created"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	RequestID    string          `json:"request_id,omitempty"`
	Key          string          `json:"-"`
	Payload      json.RawMessage `json:"payload"`
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type OrderCreatedPayload struct {
	OrderID     string      `json:"order_id"`
	Customer    string      `json:"customer"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
}

// NewEnvelope builds a version 1 envelope around payload. key is used for
// partitioning so all events of one entity keep their order.
func NewEnvelope(eventType, producer, key string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Key:          key,
		Payload:      b,
	}, nil
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Envelope) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, Envelope) error { return nil }
func (Noop) Close() error                                    { return nil }

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, ev Envelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
