// Package events delivers session notifications to off-system observers.
package events

import (
	"context"
	"log/slog"

	"github.com/mcoot/triviapool/internal/model"
)

// Publisher receives notifications after state changes commit. Delivery is
// best effort: a publisher must not block the caller for long and reports its
// own failures through logging rather than to the caller.
type Publisher interface {
	Publish(ctx context.Context, event model.Event)
}

// Multi fans an event out to several publishers in order
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event model.Event) {
	for _, p := range m {
		p.Publish(ctx, event)
	}
}

// Nop discards all events
type Nop struct{}

func (Nop) Publish(context.Context, model.Event) {}

// Logger writes every event to a structured log
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a publisher that logs events at info level
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger.With(slog.String("component", "events"))}
}

func (l *Logger) Publish(ctx context.Context, event model.Event) {
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
		slog.Uint64("session_id", uint64(event.SessionID)),
	}
	if p, ok := event.Payload.(model.TransferPayload); ok {
		attrs = append(attrs,
			slog.String("recipient", string(p.Recipient)),
			slog.String("amount", p.Amount.String()))
	}
	l.logger.InfoContext(ctx, "session event", attrs...)
}
