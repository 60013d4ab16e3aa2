package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Message is the envelope published for each outbox event.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// FromOutbox wraps a stored event for publishing.
func FromOutbox(e *model.OutboxEvent) Message {
	return Message{
		ID:         e.ID,
		Type:       e.EventType,
		Payload:    e.Payload,
		OccurredAt: e.CreatedAt,
	}
}

// Publisher delivers messages to subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg Message) error
	Close() error
}
