// Package nats relays post events between API instances over a NATS subject.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/infrastructure/realtime"
)

// DefaultSubject is the subject post events are published on.
const DefaultSubject = "feed.posts"

// Connect dials url and logs connection state changes.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("feed-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Sink receives frames relayed from other instances.
type Sink interface {
	Deliver(frame []byte)
}

// Relay publishes post events on a subject and forwards everything received
// on it to the local listeners.
type Relay struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewRelay returns a Relay on subject, or DefaultSubject when empty.
func NewRelay(conn *nats.Conn, subject string, log zerolog.Logger) *Relay {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Relay{
		conn:    conn,
		subject: subject,
		log:     log.With().Str("component", "nats_relay").Str("subject", subject).Logger(),
	}
}

func (r *Relay) Publish(_ context.Context, event domain.PostEvent) error {
	if !r.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	frame, err := realtime.Encode(event)
	if err != nil {
		return err
	}
	if err := r.conn.Publish(r.subject, frame); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Run forwards every message on the subject to sink until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, sink Sink) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		sink.Deliver(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	r.log.Info().Msg("relay subscribed")

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && r.conn.IsConnected() {
		r.log.Warn().Err(err).Msg("nats unsubscribe failed")
	}
	return nil
}
