package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Order event types written to the outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OutboxEvent is an order event recorded in the same transaction as the change it describes.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id"`
	AggregateID uuid.UUID       `db:"aggregate_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
	PublishedAt *time.Time      `db:"published_at"`
}

// NewOutboxEvent marshals payload into a new unpublished event.
func NewOutboxEvent(aggregateID uuid.UUID, eventType string, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// StatusChange is the payload of an order.status_changed event.
type StatusChange struct {
	OrderID   uuid.UUID   `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changedAt"`
}
