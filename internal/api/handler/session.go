package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/api/middleware"
	"github.com/mcoot/triviapool/internal/api/request"
	"github.com/mcoot/triviapool/internal/api/response"
	"github.com/mcoot/triviapool/internal/api/sse"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/session"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	controller *session.Controller
	hubManager *sse.HubManager
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler. hubManager may be nil to disable event streams.
func NewSessionHandler(controller *session.Controller, hubManager *sse.HubManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "session-handler")),
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	s, err := h.controller.CreateSession(r.Context(), middleware.GetCaller(r.Context()), req.Title, req.MaxParticipants)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.Created(w, "/api/v1/sessions/"+s.ID.String(), response.SessionFromModel(s))
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.controller.ListSessions(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SessionListFromModel(sessions))
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	s, err := h.controller.GetSession(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SessionFromModel(s))
}

// Join handles POST /api/v1/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	s, err := h.controller.JoinSession(r.Context(), id, middleware.GetCaller(r.Context()))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SessionFromModel(s))
}

// Start handles POST /api/v1/sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.controller.StartSession)
}

// Cancel handles POST /api/v1/sessions/{id}/cancel
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.controller.CancelSession)
}

// Retry handles POST /api/v1/sessions/{id}/retry
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.controller.RetryDisbursements)
}

// Complete handles POST /api/v1/sessions/{id}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	var req request.CompleteSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	winners := make([]model.Address, len(req.Winners))
	for i, addr := range req.Winners {
		winners[i] = model.Address(addr)
	}

	s, err := h.controller.CompleteSession(r.Context(), middleware.GetCaller(r.Context()), id, winners)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SessionFromModel(s))
}

type transitionFunc func(ctx context.Context, caller model.Address, id model.SessionID) (*model.Session, error)

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	s, err := fn(r.Context(), middleware.GetCaller(r.Context()), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SessionFromModel(s))
}

// Participants handles GET /api/v1/sessions/{id}/participants
func (h *SessionHandler) Participants(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	addrs, err := h.controller.Participants(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.AddressList{SessionID: uint64(id), Addresses: response.Addresses(addrs)})
}

// Winners handles GET /api/v1/sessions/{id}/winners
func (h *SessionHandler) Winners(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	addrs, err := h.controller.Winners(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.AddressList{SessionID: uint64(id), Addresses: response.Addresses(addrs)})
}

// State handles GET /api/v1/sessions/{id}/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	state, err := h.controller.State(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.StateResponse{SessionID: uint64(id), State: string(state)})
}

// Pool handles GET /api/v1/sessions/{id}/pool
func (h *SessionHandler) Pool(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	pool, err := h.controller.PrizePool(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.PoolResponse{SessionID: uint64(id), PrizePool: pool.String()})
}

// Member handles GET /api/v1/sessions/{id}/members/{address}
func (h *SessionHandler) Member(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	addr := model.Address(mux.Vars(r)["address"])

	ok, err := h.controller.IsParticipant(r.Context(), id, addr)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.MembershipResponse{SessionID: uint64(id), Address: string(addr), Participant: ok})
}

// Events handles GET /api/v1/sessions/{id}/events as a server-sent event stream
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hubManager == nil {
		writeError(h.logger, w, r, apierr.NewNotSupportedError("event streams are disabled"))
		return
	}
	id, err := sessionID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if _, err := h.controller.GetSession(r.Context(), id); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	subscriber := string(middleware.GetCaller(r.Context()))
	if subscriber == "" {
		subscriber = r.RemoteAddr
	}
	sse.ServeSSE(w, r, h.hubManager, id, subscriber)
}
