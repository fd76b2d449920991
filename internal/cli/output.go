package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

func outputFor(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Session:
		o.printSession(v)
	case SessionList:
		o.printSessionList(v)
	case AddressList:
		o.printAddressList(v)
	case StateResult:
		o.printf("Session %d: %s\n", v.SessionID, orDash(v.State))
	case PoolResult:
		o.printf("Session %d prize pool: %s\n", v.SessionID, v.PrizePool)
	case MembershipResult:
		o.printf("%s participant of session %d: %s\n", v.Address, v.SessionID, yesNo(v.Participant))
	case BalanceResult:
		o.printf("%s: %s\n", v.Address, v.Balance)
	case AllowanceResult:
		o.printf("%s -> %s: %s\n", v.Owner, v.Spender, v.Allowance)
	case InfoResult:
		o.printInfo(v)
	case AuthResult:
		o.printf("Logged in as %s\n", v.Address)
		o.printf("Expires: %s\n", v.ExpiresAt.Format(time.RFC3339))
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// Session response type (matches API)
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

// Disbursement response type
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

// SessionList response type
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// AddressList response type
type AddressList struct {
	SessionID uint64   `json:"session_id"`
	Addresses []string `json:"addresses"`
}

// StateResult response type
type StateResult struct {
	SessionID uint64 `json:"session_id"`
	State     string `json:"state"`
}

// PoolResult response type
type PoolResult struct {
	SessionID uint64 `json:"session_id"`
	PrizePool string `json:"prize_pool"`
}

// MembershipResult response type
type MembershipResult struct {
	SessionID   uint64 `json:"session_id"`
	Address     string `json:"address"`
	Participant bool   `json:"participant"`
}

// BalanceResult response type
type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// AllowanceResult response type
type AllowanceResult struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// InfoResult response type
type InfoResult struct {
	Admin     string `json:"admin"`
	Escrow    string `json:"escrow"`
	EntryFee  string `json:"entry_fee"`
	DevLedger bool   `json:"dev_ledger"`
}

// AuthResult response type
type AuthResult struct {
	Address      string    `json:"address"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(s Session) {
	o.printf("Session %d: %s\n", s.ID, s.Title)
	o.printf("State: %s\n", s.State)
	o.printf("Entry Fee: %s\n", s.EntryFee)
	o.printf("Prize Pool: %s\n", s.PrizePool)
	o.printf("Participants (%d/%d):\n", len(s.Participants), s.MaxParticipants)
	for _, p := range s.Participants {
		o.printf("  - %s\n", p)
	}
	if len(s.Winners) > 0 {
		o.printf("Winners:\n")
		for i, w := range s.Winners {
			o.printf("  %d. %s\n", i+1, w)
		}
	}
	if len(s.Disbursements) > 0 {
		o.printf("Disbursements:\n")
		for _, d := range s.Disbursements {
			line := fmt.Sprintf("  %s %s -> %s [%s]", d.Kind, d.Amount, d.Recipient, d.Status)
			if d.LastError != "" {
				line += " " + d.LastError
			}
			o.printf("%s\n", line)
		}
	}
}

func (o *Output) printSessionList(l SessionList) {
	if len(l.Sessions) == 0 {
		o.printf("No sessions\n")
		return
	}
	for _, s := range l.Sessions {
		o.printf("%d\t%-12s\t%d/%d\t%s\t%s\n",
			s.ID, s.State, len(s.Participants), s.MaxParticipants, s.PrizePool, s.Title)
	}
}

func (o *Output) printAddressList(l AddressList) {
	if len(l.Addresses) == 0 {
		o.printf("None\n")
		return
	}
	o.printf("%s\n", strings.Join(l.Addresses, "\n"))
}

func (o *Output) printInfo(i InfoResult) {
	o.printf("Administrator: %s\n", i.Admin)
	o.printf("Escrow: %s\n", i.Escrow)
	o.printf("Entry Fee: %s\n", i.EntryFee)
	o.printf("Dev Ledger: %s\n", yesNo(i.DevLedger))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
