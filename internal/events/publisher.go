package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// publishTimeout bounds one publish including the broker confirm.
const publishTimeout = 5 * time.Second

// ErrNotConfirmed is returned when the broker nacks a published envelope.
var ErrNotConfirmed = errors.New("broker did not confirm event")

// Publisher delivers domain event envelopes. The routing key is the envelope's
// event type.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Broker publishes envelopes to a RabbitMQ topic exchange in confirm mode.
type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Dial connects to amqpURL, declares exchange as a durable topic exchange and
// puts the channel in confirm mode.
func Dial(amqpURL, exchange string) (*Broker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &Broker{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends env and waits for the broker to confirm it.
func (b *Broker) Publish(ctx context.Context, env Envelope) error {
	msg, err := publishing(env)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel == nil || b.channel.IsClosed() {
		return amqp.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	confirm, err := b.channel.PublishWithDeferredConfirmWithContext(ctx, b.exchange, env.EventType, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", env.EventType, err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn, b.channel = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// publishing maps env onto AMQP message properties so consumers can route and
// deduplicate without decoding the body.
func publishing(env Envelope) (amqp.Publishing, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", env.EventType, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, env.OccurredAt)
	if err != nil {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Type:         env.EventType,
		Timestamp:    ts,
		Headers: amqp.Table{
			"schema_version": int32(env.SchemaVersion),
			"actor_id":       strconv.FormatUint(uint64(env.ActorID), 10),
		},
		Body: body,
	}, nil
}

// NewNoopPublisher returns a publisher that drops envelopes, logging each at
// debug level.
func NewNoopPublisher(log *logrus.Logger) Publisher { return noopPublisher{log: log} }

type noopPublisher struct{ log *logrus.Logger }

func (n noopPublisher) Publish(_ context.Context, env Envelope) error {
	n.log.WithFields(logrus.Fields{"event": env.EventType, "event_id": env.EventID}).Debug("broker not configured; skipping publish")
	return nil
}

func (noopPublisher) Close() error { return nil }
