package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const schemaVersion = 1

// Routing keys published by the backend.
const (
	FriendshipCreated   = "friendship.created"
	FriendshipAccepted  = "friendship.accepted"
	FriendshipDeclined  = "friendship.declined"
	FriendshipCancelled = "friendship.cancelled"
	FriendshipRemoved   = "friendship.removed"
	MessageSent         = "message.sent"
	EventCancelled      = "event.cancelled"
	ReminderFired       = "reminder.fired"
)

// Envelope wraps every domain event on the exchange.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventID       string `json:"event_id"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	ActorID       uint   `json:"actor_id,omitempty"`
	Payload       any    `json:"payload"`
}

// NewEnvelope stamps payload with a fresh id and the current time.
func NewEnvelope(eventType string, actorID uint, payload any) Envelope {
	return Envelope{
		SchemaVersion: schemaVersion,
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:       actorID,
		Payload:       payload,
	}
}

// Emit publishes an envelope and logs, rather than returns, a failure. Domain
// events never fail the request that produced them.
func Emit(ctx context.Context, p Publisher, log *logrus.Logger, eventType string, actorID uint, payload any) {
	if p == nil {
		return
	}
	env := NewEnvelope(eventType, actorID, payload)
	if err := p.Publish(ctx, env); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"event": eventType, "event_id": env.EventID}).Warn("failed to publish domain event")
	}
}
