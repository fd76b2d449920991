package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcoot/triviapool/internal/api/handler"
	"github.com/mcoot/triviapool/internal/api/middleware"
	"github.com/mcoot/triviapool/internal/api/sse"
	"github.com/mcoot/triviapool/internal/ledger"
	basemw "github.com/mcoot/triviapool/internal/middleware"
	"github.com/mcoot/triviapool/internal/services/auth"
	"github.com/mcoot/triviapool/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	AuthService       *auth.Service
	SessionController *session.Controller
	Ledger            *ledger.Adapter
	HubManager        *sse.HubManager

	// DevLedger registers the approve and mint endpoints
	DevLedger bool

	// CORSOrigins lists allowed browser origins; empty disables CORS headers
	CORSOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.SessionController, cfg.HubManager, cfg.Logger)
	ledgerHandler := handler.NewLedgerHandler(cfg.Ledger, cfg.Logger)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(basemw.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Identify(cfg.AuthService))

	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	caller := func(h http.HandlerFunc) http.Handler { return middleware.RequireCaller(h) }

	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	api.HandleFunc("/info", handler.Info(cfg.SessionController, cfg.DevLedger)).Methods(http.MethodGet)

	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.Handle("/auth/logout", admin(authHandler.Logout)).Methods(http.MethodPost)

	// Session routes. Mutations other than join need an administrator session.
	api.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	api.Handle("/sessions", admin(sessionHandler.Create)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods(http.MethodGet)
	api.Handle("/sessions/{id}/join", caller(sessionHandler.Join)).Methods(http.MethodPost)
	api.Handle("/sessions/{id}/start", admin(sessionHandler.Start)).Methods(http.MethodPost)
	api.Handle("/sessions/{id}/complete", admin(sessionHandler.Complete)).Methods(http.MethodPost)
	api.Handle("/sessions/{id}/cancel", admin(sessionHandler.Cancel)).Methods(http.MethodPost)
	api.Handle("/sessions/{id}/retry", admin(sessionHandler.Retry)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/participants", sessionHandler.Participants).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/winners", sessionHandler.Winners).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/state", sessionHandler.State).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/pool", sessionHandler.Pool).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/members/{address}", sessionHandler.Member).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/events", sessionHandler.Events).Methods(http.MethodGet)

	api.HandleFunc("/ledger/balances/{address}", ledgerHandler.Balance).Methods(http.MethodGet)
	api.HandleFunc("/ledger/allowances/{owner}", ledgerHandler.Allowance).Methods(http.MethodGet)
	if cfg.DevLedger {
		api.Handle("/ledger/approve", caller(ledgerHandler.Approve)).Methods(http.MethodPost)
		api.Handle("/ledger/mint", admin(ledgerHandler.Mint)).Methods(http.MethodPost)
	}

	if len(cfg.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.CallerHeader},
		ExposedHeaders: []string{basemw.RequestIDHeader},
		MaxAge:         300,
	}).Handler(r)
}
