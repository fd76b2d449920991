package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/triviapool/internal/model"
)

// NewEvent stamps an event with a fresh id
func NewEvent(at time.Time, eventType model.EventType, sessionID model.SessionID, payload any) model.Event {
	return model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: at,
		SessionID: sessionID,
		Payload:   payload,
	}
}
