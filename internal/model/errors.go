package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCapacity    = errors.New("max participants must be at least 1")
	ErrInvalidState       = errors.New("operation not allowed in current session state")
	ErrAlreadyJoined      = errors.New("participant has already joined this session")
	ErrSessionFull        = errors.New("session is full")
	ErrNoParticipants     = errors.New("session has no participants")
	ErrNothingToRefund    = errors.New("session has no participants to refund")
	ErrInvalidWinnerCount = errors.New("between 1 and 3 winners are required")
	ErrInvalidWinner      = errors.New("winner is not a participant")
	ErrDuplicateWinner    = errors.New("winner listed more than once")
	ErrInvalidEntryFee    = errors.New("entry fee must be positive")

	// Ledger errors
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrZeroAddress           = errors.New("zero address")
	ErrAmountOverflow        = errors.New("amount overflows")
	ErrEscrowParticipant     = errors.New("escrow account cannot take part in a session")

	// Access errors
	ErrNotAdministrator = errors.New("caller is not the administrator")
	ErrReentrantCall    = errors.New("reentrant call rejected")
)
