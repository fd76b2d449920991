package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcoot/triviapool/internal/model"
)

// Envelope is the JSON form of an event sent to external subscribers.
// Amounts are decimal strings so consumers never lose precision.
type Envelope struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID uint64          `json:"session_id"`
	Data      *EnvelopeData   `json:"data,omitempty"`
}

// EnvelopeData holds the type-specific fields of an event
type EnvelopeData struct {
	Title           string   `json:"title,omitempty"`
	MaxParticipants uint32   `json:"max_participants,omitempty"`
	Participant     string   `json:"participant,omitempty"`
	Winners         []string `json:"winners,omitempty"`
	Recipient       string   `json:"recipient,omitempty"`
	Amount          string   `json:"amount,omitempty"`
}

// Encode converts an event to its JSON wire form
func Encode(event model.Event) ([]byte, error) {
	env := Envelope{
		ID:        event.ID,
		Type:      event.Type,
		Timestamp: event.Timestamp.UTC(),
		SessionID: uint64(event.SessionID),
	}

	switch p := event.Payload.(type) {
	case nil:
	case model.SessionCreatedPayload:
		env.Data = &EnvelopeData{Title: p.Title, MaxParticipants: p.MaxParticipants}
	case model.ParticipantJoinedPayload:
		env.Data = &EnvelopeData{Participant: string(p.Participant)}
	case model.SessionCompletedPayload:
		winners := make([]string, len(p.Winners))
		for i, w := range p.Winners {
			winners[i] = string(w)
		}
		env.Data = &EnvelopeData{Winners: winners}
	case model.TransferPayload:
		env.Data = &EnvelopeData{Recipient: string(p.Recipient), Amount: p.Amount.String()}
	default:
		return nil, fmt.Errorf("unsupported payload %T for event %s", event.Payload, event.Type)
	}

	return json.Marshal(env)
}
