package response

import (
	"time"

	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
)

// Amounts are rendered as decimal strings so clients never round them.

// Session represents a session in API responses
type Session struct {
	ID              uint64         `json:"id"`
	Title           string         `json:"title"`
	EntryFee        string         `json:"entry_fee"`
	PrizePool       string         `json:"prize_pool"`
	MaxParticipants uint32         `json:"max_participants"`
	State           string         `json:"state"`
	Participants    []string       `json:"participants"`
	Winners         []string       `json:"winners"`
	Disbursements   []Disbursement `json:"disbursements,omitempty"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Disbursement represents one payout or refund
type Disbursement struct {
	Kind      string     `json:"kind"`
	Rank      int        `json:"rank,omitempty"`
	Recipient string     `json:"recipient"`
	Amount    string     `json:"amount"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// SessionFromModel converts a model.Session
func SessionFromModel(s *model.Session) Session {
	resp := Session{
		ID:              uint64(s.ID),
		Title:           s.Title,
		EntryFee:        s.EntryFee.String(),
		PrizePool:       s.PrizePool.String(),
		MaxParticipants: s.MaxParticipants,
		State:           string(s.State),
		Participants:    Addresses(s.Participants),
		Winners:         Addresses(s.Winners),
		StartTime:       optionalTime(s.StartTime),
		EndTime:         optionalTime(s.EndTime),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for _, d := range s.Disbursements {
		resp.Disbursements = append(resp.Disbursements, Disbursement{
			Kind:      string(d.Kind),
			Rank:      d.Rank,
			Recipient: string(d.Recipient),
			Amount:    d.Amount.String(),
			Status:    string(d.Status),
			Attempts:  d.Attempts,
			LastError: d.LastError,
			PaidAt:    optionalTime(d.PaidAt),
		})
	}
	return resp
}

// SessionList is the response for listing sessions
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// SessionListFromModel converts a slice of sessions
func SessionListFromModel(sessions []*model.Session) SessionList {
	list := SessionList{Sessions: make([]Session, 0, len(sessions))}
	for _, s := range sessions {
		list.Sessions = append(list.Sessions, SessionFromModel(s))
	}
	return list
}

// AddressList is the response for participant and winner queries
type AddressList struct {
	SessionID uint64   `json:"session_id"`
	Addresses []string `json:"addresses"`
}

// StateResponse is the response for state queries. Unknown sessions report an empty state.
type StateResponse struct {
	SessionID uint64 `json:"session_id"`
	State     string `json:"state"`
}

// PoolResponse is the response for prize pool queries
type PoolResponse struct {
	SessionID uint64 `json:"session_id"`
	PrizePool string `json:"prize_pool"`
}

// MembershipResponse is the response for membership checks
type MembershipResponse struct {
	SessionID   uint64 `json:"session_id"`
	Address     string `json:"address"`
	Participant bool   `json:"participant"`
}

// BalanceResponse is the response for ledger balance queries
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// AllowanceResponse reports how much the escrow may pull from an owner
type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// InfoResponse describes the deployment's fixed accounts and fee
type InfoResponse struct {
	Admin     string `json:"admin"`
	Escrow    string `json:"escrow"`
	EntryFee  string `json:"entry_fee"`
	DevLedger bool   `json:"dev_ledger"`
}

// AuthResponse is the response for administrator login
type AuthResponse struct {
	Address      string    `json:"address"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Address:      string(s.Address),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Addresses converts addresses to strings, never returning nil
func Addresses(addrs []model.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = string(a)
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
