package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/triviapool/internal/api/middleware"
	"github.com/mcoot/triviapool/internal/api/request"
	"github.com/mcoot/triviapool/internal/api/response"
	"github.com/mcoot/triviapool/internal/services/auth"
)

// AuthHandler handles administrator login
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With(slog.String("component", "auth-handler")),
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Key)
	if err != nil {
		h.logger.WarnContext(r.Context(), "administrator login failed", slog.String("remote_addr", r.RemoteAddr))
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}
