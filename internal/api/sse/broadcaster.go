package sse

import (
	"context"
	"log/slog"

	"github.com/mcoot/triviapool/internal/events"
	"github.com/mcoot/triviapool/internal/model"
)

// Broadcaster forwards session events to the matching SSE hub
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

var _ events.Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Publish sends the event to subscribers of its session. Sessions nobody watches are skipped.
func (b *Broadcaster) Publish(_ context.Context, event model.Event) {
	hub := b.hubManager.GetHub(event.SessionID)
	if hub == nil {
		return
	}

	data, err := events.Encode(event)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(string(event.Type), string(data))
}
