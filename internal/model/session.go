package model

import (
	"slices"
	"strconv"
	"time"
)

// SessionID uniquely identifies a trivia session. IDs are sequential from 1.
type SessionID uint64

func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// SessionState represents the lifecycle phase of a session
type SessionState string

const (
	SessionStateUnknown    SessionState = ""            // Reported for sessions that do not exist
	SessionStateOpen       SessionState = "open"        // Accepting entries
	SessionStateInProgress SessionState = "in_progress" // Entry closed, play underway
	SessionStateCompleted  SessionState = "completed"   // Winners declared and paid
	SessionStateCancelled  SessionState = "cancelled"   // Aborted and refunded
)

var transitions = map[SessionState][]SessionState{
	SessionStateOpen:       {SessionStateInProgress, SessionStateCancelled},
	SessionStateInProgress: {SessionStateCompleted, SessionStateCancelled},
}

// CanTransition reports whether the lifecycle permits moving from one state to another
func CanTransition(from, to SessionState) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal returns true for states no operation can leave
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCompleted || s == SessionStateCancelled
}

// MaxWinners is the number of ranked payout positions
const MaxWinners = 3

// Session is a single trivia round with its escrowed prize pool
type Session struct {
	ID              SessionID
	Title           string
	EntryFee        Amount // Fee in force when the session was created
	PrizePool       Amount
	MaxParticipants uint32
	State           SessionState

	Participants []Address // Join order
	Winners      []Address // Rank order, index 0 is first place

	// Disbursements is the payout or refund plan, recorded on the terminal transition
	Disbursements []Disbursement

	StartTime time.Time // Zero until started
	EndTime   time.Time // Zero until completed or cancelled
	CreatedAt time.Time
	UpdatedAt time.Time

	joined map[Address]struct{}
}

// HasJoined reports whether the address is a participant
func (s *Session) HasJoined(addr Address) bool {
	if s.joined == nil || len(s.joined) != len(s.Participants) {
		s.joined = make(map[Address]struct{}, len(s.Participants))
		for _, p := range s.Participants {
			s.joined[p] = struct{}{}
		}
	}
	_, ok := s.joined[addr]
	return ok
}

// AddParticipant appends a participant in join order
func (s *Session) AddParticipant(addr Address) {
	s.HasJoined(addr)
	s.Participants = append(s.Participants, addr)
	s.joined[addr] = struct{}{}
}

// IsFull returns true once the participant cap is reached
func (s *Session) IsFull() bool {
	return uint64(len(s.Participants)) >= uint64(s.MaxParticipants)
}

// Pending returns the indexes of disbursements that have not been paid
func (s *Session) Pending() []int {
	var idx []int
	for i, d := range s.Disbursements {
		if d.Status != DisbursementPaid {
			idx = append(idx, i)
		}
	}
	return idx
}

// Disbursed returns the total amount successfully transferred out of escrow
func (s *Session) Disbursed() Amount {
	var total Amount
	for _, d := range s.Disbursements {
		if d.Status == DisbursementPaid {
			total += d.Amount
		}
	}
	return total
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	c.Participants = slices.Clone(s.Participants)
	c.Winners = slices.Clone(s.Winners)
	c.Disbursements = slices.Clone(s.Disbursements)
	c.joined = nil
	return &c
}

// DisbursementKind distinguishes prize payouts from entry refunds
type DisbursementKind string

const (
	DisbursementPayout DisbursementKind = "payout"
	DisbursementRefund DisbursementKind = "refund"
)

// DisbursementStatus tracks whether a transfer out of escrow went through
type DisbursementStatus string

const (
	DisbursementPending DisbursementStatus = "pending"
	DisbursementPaid    DisbursementStatus = "paid"
	DisbursementFailed  DisbursementStatus = "failed"
)

// Disbursement is one planned transfer out of a session's escrow
type Disbursement struct {
	Kind      DisbursementKind
	Rank      int // 1-based prize rank, 0 for refunds
	Recipient Address
	Amount    Amount
	Status    DisbursementStatus
	Attempts  int
	LastError string
	PaidAt    time.Time
}
