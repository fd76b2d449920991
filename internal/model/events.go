package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventSessionCreated    EventType = "session_created"
	EventParticipantJoined EventType = "participant_joined"
	EventSessionStarted    EventType = "session_started"
	EventSessionCompleted  EventType = "session_completed"
	EventSessionCancelled  EventType = "session_cancelled"
	EventPayoutIssued      EventType = "payout_issued"
	EventRefundIssued      EventType = "refund_issued"
)

// Event is the base structure for all events
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	SessionID SessionID
	Payload   any // Type-specific data, nil when the type carries none
}

// SessionCreatedPayload contains data for session created events
type SessionCreatedPayload struct {
	Title           string
	MaxParticipants uint32
}

// ParticipantJoinedPayload contains data for participant joined events
type ParticipantJoinedPayload struct {
	Participant Address
}

// SessionCompletedPayload contains data for session completed events
type SessionCompletedPayload struct {
	Winners []Address
}

// TransferPayload contains data for payout and refund events
type TransferPayload struct {
	Recipient Address
	Amount    Amount
}
