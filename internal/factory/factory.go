package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcoot/triviapool/internal/api/sse"
	"github.com/mcoot/triviapool/internal/dependencies/clock"
	"github.com/mcoot/triviapool/internal/events"
	redisevents "github.com/mcoot/triviapool/internal/events/redis"
	"github.com/mcoot/triviapool/internal/ledger"
	memledger "github.com/mcoot/triviapool/internal/ledger/memory"
	redisledger "github.com/mcoot/triviapool/internal/ledger/redis"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
	"github.com/mcoot/triviapool/internal/services/session"
	"github.com/mcoot/triviapool/internal/services/settlement"
	"github.com/mcoot/triviapool/internal/storage"
	memstorage "github.com/mcoot/triviapool/internal/storage/memory"
	redisstorage "github.com/mcoot/triviapool/internal/storage/redis"
	sqlitestorage "github.com/mcoot/triviapool/internal/storage/sqlite"
	"github.com/mcoot/triviapool/internal/telemetry"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// Ledger type constants
const (
	LedgerTypeMemory = "memory"
	LedgerTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// Token ledger and the escrow binding over it
	Token  ledger.Token
	Ledger *ledger.Adapter

	// External dependencies
	Clock     clock.Clock
	Publisher events.Publisher
	Metrics   *telemetry.Metrics

	// Services
	SettlementEngine  *settlement.Engine
	SessionController *session.Controller
	AuthService       *auth.Service
	HubManager        *sse.HubManager

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string

	// LedgerType selects the token ledger ("memory" or "redis")
	// If empty, defaults to "memory"
	LedgerType string

	// RedisConfig holds Redis connection settings, required when any component uses Redis
	RedisConfig *redisstorage.Config

	// SQLitePath is the database file for sqlite storage
	SQLitePath string

	// EventsChannel publishes events to this Redis pub/sub channel when set
	EventsChannel string

	// Admin is the administrator account; Escrow is the account holding pools
	Admin  model.Address
	Escrow model.Address

	// EntryFee is charged to participants of newly created sessions
	EntryFee model.Amount

	// AuthConfig holds configuration for the auth service. Admin is filled in from Admin.
	AuthConfig auth.Config

	// Settlement controls transfer retries (optional)
	Settlement settlement.Config

	// MeterProvider receives metrics (optional)
	// If nil, the global provider is used
	MeterProvider metric.MeterProvider
}

// dependencies are the swappable parts newWithDependencies wires together
type dependencies struct {
	store     storage.Storage
	token     ledger.Token
	clock     clock.Clock
	publisher events.Publisher
	metrics   *telemetry.Metrics
	closers   []io.Closer
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	deps := dependencies{clock: clock.System}
	app, err := build(cfg, logger, &deps)
	if err != nil {
		for _, c := range deps.closers {
			_ = c.Close()
		}
		return nil, err
	}
	return app, nil
}

func build(cfg Config, logger *slog.Logger, deps *dependencies) (*App, error) {
	storageType := defaultString(cfg.StorageType, StorageTypeMemory)
	ledgerType := defaultString(cfg.LedgerType, LedgerTypeMemory)

	var client *redis.Client
	if storageType == StorageTypeRedis || ledgerType == LedgerTypeRedis || cfg.EventsChannel != "" {
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when a component uses redis")
		}
		c, err := redisstorage.NewClient(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		client = c
		deps.closers = append(deps.closers, client)
	}

	switch storageType {
	case StorageTypeMemory:
		deps.store = memstorage.New()
	case StorageTypeRedis:
		deps.store = redisstorage.NewWithClient(client, logger)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		store, err := sqlitestorage.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		deps.store = store
		deps.closers = append(deps.closers, store)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	switch ledgerType {
	case LedgerTypeMemory:
		deps.token = memledger.New()
	case LedgerTypeRedis:
		deps.token = redisledger.New(client)
	default:
		return nil, errors.New("invalid LedgerType: must be 'memory' or 'redis'")
	}

	provider := cfg.MeterProvider
	if provider == nil {
		deps.metrics = telemetry.GetMetrics()
	} else {
		deps.metrics = telemetry.NewMetrics(provider)
	}

	var redisPublisher events.Publisher
	if cfg.EventsChannel != "" {
		redisPublisher = redisevents.New(client, cfg.EventsChannel, logger)
	}

	return newWithDependencies(cfg, logger, deps, redisPublisher)
}

// newWithDependencies wires services over the given dependencies (useful for testing).
// Extra publishers receive every event alongside the log and SSE publishers.
func newWithDependencies(cfg Config, logger *slog.Logger, deps *dependencies, extra ...events.Publisher) (*App, error) {
	adapter, err := ledger.New(deps.token, cfg.Escrow)
	if err != nil {
		return nil, fmt.Errorf("escrow account: %w", err)
	}

	hubManager := sse.NewHubManager(logger)
	publisher := events.Multi{events.NewLogger(logger), sse.NewBroadcaster(hubManager, logger)}
	for _, p := range extra {
		if p != nil {
			publisher = append(publisher, p)
		}
	}
	if deps.publisher != nil {
		publisher = append(publisher, deps.publisher)
	}

	engine := settlement.New(adapter, publisher, deps.clock, deps.metrics, cfg.Settlement, logger)

	controller, err := session.NewController(deps.store, adapter, engine, publisher, deps.clock, deps.metrics,
		session.Config{Admin: cfg.Admin, EntryFee: cfg.EntryFee}, logger)
	if err != nil {
		return nil, err
	}

	authCfg := cfg.AuthConfig
	authCfg.Admin = cfg.Admin
	authService, err := auth.New(deps.clock, authCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:           deps.store,
		Token:             deps.token,
		Ledger:            adapter,
		Clock:             deps.clock,
		Publisher:         publisher,
		Metrics:           deps.metrics,
		SettlementEngine:  engine,
		SessionController: controller,
		AuthService:       authService,
		HubManager:        hubManager,
		logger:            logger.With(slog.String("component", "app")),
		closers:           deps.closers,
	}, nil
}

// RunMaintenance periodically drops expired administrator sessions and idle
// event hubs until ctx is cancelled
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.AuthService.CleanExpiredSessions(); n > 0 {
				a.logger.Info("expired admin sessions removed", slog.Int("removed", n))
			}
			a.HubManager.CleanupEmptyHubs()
		}
	}
}

// Close disconnects event streams and releases storage and Redis connections
func (a *App) Close() error {
	a.HubManager.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
