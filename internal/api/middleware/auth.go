package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
)

// CallerHeader names the account a participant request acts for
const CallerHeader = "X-Caller-Address"

type contextKey string

const (
	callerContextKey  contextKey = "caller"
	sessionContextKey contextKey = "session"
)

// Identify resolves the caller of every request. A bearer token must be a live
// administrator session and makes the administrator the caller; otherwise the
// caller is whatever account the caller header names. The header is not
// authenticated.
func Identify(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token := extractToken(r); token != "" {
				session, err := authService.ValidateSession(token)
				if err != nil {
					apierr.WriteError(w, err)
					return
				}
				ctx = context.WithValue(ctx, sessionContextKey, session)
				ctx = context.WithValue(ctx, callerContextKey, session.Address)
			} else if caller := strings.TrimSpace(r.Header.Get(CallerHeader)); caller != "" {
				ctx = context.WithValue(ctx, callerContextKey, model.Address(caller))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests without an administrator session
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			apierr.WriteError(w, apierr.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller rejects requests that name no caller at all
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetCaller(r.Context()) == "" {
			apierr.WriteError(w, apierr.NewInvalidRequestError(CallerHeader+" header required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// GetCaller returns the account the request acts for, empty if none
func GetCaller(ctx context.Context) model.Address {
	caller, _ := ctx.Value(callerContextKey).(model.Address)
	return caller
}

// GetSession returns the administrator session from the request context
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}
