package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBridge fans events out through a Redis pub/sub channel so that a user
// connected to another process still receives them.
type RedisBridge struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
}

func NewRedisBridge(client *redis.Client, channel string, log *logrus.Logger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, log: log}
}

func (b *RedisBridge) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Run subscribes to the channel and delivers every envelope to h until ctx is
// cancelled. ready, if non-nil, is closed once the subscription is confirmed.
func (b *RedisBridge) Run(ctx context.Context, h *Hub, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.WithError(err).Warn("hub: dropping malformed bridge message")
				continue
			}
			h.Deliver(env)
		}
	}
}
