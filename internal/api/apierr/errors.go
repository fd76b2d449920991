package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeNotAdministrator      = "NOT_ADMINISTRATOR"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeInvalidCapacity       = "INVALID_CAPACITY"
	CodeInvalidEntryFee       = "INVALID_ENTRY_FEE"
	CodeInvalidState          = "INVALID_STATE"
	CodeAlreadyJoined         = "ALREADY_JOINED"
	CodeSessionFull           = "SESSION_FULL"
	CodeNoParticipants        = "NO_PARTICIPANTS"
	CodeNothingToRefund       = "NOTHING_TO_REFUND"
	CodeInvalidWinnerCount    = "INVALID_WINNER_COUNT"
	CodeInvalidWinner         = "INVALID_WINNER"
	CodeDuplicateWinner       = "DUPLICATE_WINNER"
	CodeInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	CodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
	CodeZeroAddress           = "ZERO_ADDRESS"
	CodeAmountOverflow        = "AMOUNT_OVERFLOW"
	CodeEscrowParticipant     = "ESCROW_PARTICIPANT"
	CodeReentrantCall         = "REENTRANT_CALL"
	CodeNotSupported          = "NOT_SUPPORTED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

type mapping struct {
	target error
	status int
	code   string
}

// mappings is checked in order; the first errors.Is match wins
var mappings = []mapping{
	{model.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{model.ErrNotAdministrator, http.StatusForbidden, CodeNotAdministrator},
	{model.ErrInvalidCapacity, http.StatusBadRequest, CodeInvalidCapacity},
	{model.ErrInvalidEntryFee, http.StatusBadRequest, CodeInvalidEntryFee},
	{model.ErrInvalidWinnerCount, http.StatusBadRequest, CodeInvalidWinnerCount},
	{model.ErrInvalidWinner, http.StatusBadRequest, CodeInvalidWinner},
	{model.ErrDuplicateWinner, http.StatusBadRequest, CodeDuplicateWinner},
	{model.ErrZeroAddress, http.StatusBadRequest, CodeZeroAddress},
	{model.ErrAmountOverflow, http.StatusBadRequest, CodeAmountOverflow},
	{model.ErrEscrowParticipant, http.StatusBadRequest, CodeEscrowParticipant},
	{model.ErrInvalidState, http.StatusConflict, CodeInvalidState},
	{model.ErrAlreadyJoined, http.StatusConflict, CodeAlreadyJoined},
	{model.ErrSessionFull, http.StatusConflict, CodeSessionFull},
	{model.ErrNoParticipants, http.StatusConflict, CodeNoParticipants},
	{model.ErrNothingToRefund, http.StatusConflict, CodeNothingToRefund},
	{model.ErrReentrantCall, http.StatusConflict, CodeReentrantCall},
	{model.ErrInsufficientAllowance, http.StatusPaymentRequired, CodeInsufficientAllowance},
	{model.ErrInsufficientBalance, http.StatusPaymentRequired, CodeInsufficientBalance},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return &httpError{m.status, APIError{m.code, err.Error()}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewNotSupportedError reports a feature the configured backend lacks
func NewNotSupportedError(message string) error {
	return &httpError{http.StatusNotImplemented, APIError{CodeNotSupported, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return NewInternalErrorWithMessage("Internal server error")
}

// NewInternalErrorWithMessage creates an internal server error with a caller-safe message
func NewInternalErrorWithMessage(message string) error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, message}}
}
