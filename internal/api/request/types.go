package request

// LoginRequest is the request body for exchanging the administrator key
type LoginRequest struct {
	Key string `json:"key"`
}

// CreateSessionRequest is the request body for opening a session
type CreateSessionRequest struct {
	Title           string `json:"title"`
	MaxParticipants uint32 `json:"max_participants"`
}

// CompleteSessionRequest lists winners in rank order
type CompleteSessionRequest struct {
	Winners []string `json:"winners"`
}

// ApproveRequest grants the escrow account an allowance from the caller.
// Amount is a decimal string.
type ApproveRequest struct {
	Amount string `json:"amount"`
}

// MintRequest credits new tokens to an account. Amount is a decimal string.
type MintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}
