package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is a bus that can be both published to and consumed from.
type Stream interface {
	Publisher
	Consume(ctx context.Context) <-chan Event
}

// RedisBus fans events out to every subscriber of a Redis channel, so all
// portal replicas sharing a session store see each expiry.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisBus builds a bus on channel.
func NewRedisBus(client *redis.Client, channel string, log *zap.Logger) *RedisBus {
	if channel == "" {
		channel = "portal:events"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBus{client: client, channel: channel, log: log}
}

// Publish sends evt to every current subscriber.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Consume subscribes and streams events until ctx is cancelled.
func (b *RedisBus) Consume(ctx context.Context) <-chan Event {
	sub := b.client.Subscribe(ctx, b.channel)
	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Warn("dropping malformed event", zap.Error(err))
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
