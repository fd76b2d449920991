// Package redis publishes session events to a Redis pub/sub channel for
// off-system indexers.
package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/triviapool/internal/events"
	"github.com/mcoot/triviapool/internal/model"
)

// DefaultChannel is the pub/sub channel used when none is configured
const DefaultChannel = "triviapool:events"

// Publisher sends JSON-encoded events with PUBLISH
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// New creates a publisher on an existing client
func New(client *redis.Client, channel string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis-events")),
	}
}

var _ events.Publisher = (*Publisher)(nil)

// Channel returns the channel events are published on
func (p *Publisher) Channel() string {
	return p.channel
}

func (p *Publisher) Publish(ctx context.Context, event model.Event) {
	data, err := events.Encode(event)
	if err != nil {
		p.logger.Error("failed to encode event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}

	// Subscribers are notified even if the originating request is cancelled
	if err := p.client.Publish(context.WithoutCancel(ctx), p.channel, data).Err(); err != nil {
		p.logger.Error("failed to publish event",
			slog.String("event_id", event.ID),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
	}
}
