package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/infrastructure/realtime"
)

// DefaultChannel is the pub/sub channel post events travel on.
const DefaultChannel = "feed:posts"

// Sink receives frames relayed from other instances.
type Sink interface {
	Deliver(frame []byte)
}

// Relay fans post events out through Redis pub/sub so every API instance
// can push them to its own listeners.
type Relay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRelay returns a Relay on channel, or DefaultChannel when empty.
func NewRelay(client *redis.Client, channel string, log zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "redis_relay").Str("channel", channel).Logger(),
	}
}

// Publish sends event to every subscribed instance, this one included.
func (r *Relay) Publish(ctx context.Context, event domain.PostEvent) error {
	frame, err := realtime.Encode(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run forwards every message on the channel to sink until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, sink Sink) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed before reporting ready
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.log.Info().Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sink.Deliver([]byte(msg.Payload))
		}
	}
}
