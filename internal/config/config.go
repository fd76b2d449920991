package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend names accepted by the storage and ledger settings
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the server settings read from the environment
type Config struct {
	Host            string        `env:"TRIVIAPOOL_HOST"`
	Port            int           `env:"TRIVIAPOOL_PORT"             envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"TRIVIAPOOL_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        slog.Level    `env:"TRIVIAPOOL_LOG_LEVEL"        envDefault:"INFO"`
	CORSOrigins     []string      `env:"TRIVIAPOOL_CORS_ORIGINS"     envDefault:"*" envSeparator:","`

	StorageType string `env:"TRIVIAPOOL_STORAGE"     envDefault:"memory"`
	LedgerType  string `env:"TRIVIAPOOL_LEDGER"      envDefault:"memory"`
	RedisURL    string `env:"TRIVIAPOOL_REDIS_URL"`
	SQLitePath  string `env:"TRIVIAPOOL_SQLITE_PATH" envDefault:"triviapool.db"`

	// EventsChannel enables Redis pub/sub notifications when set
	EventsChannel string `env:"TRIVIAPOOL_EVENTS_CHANNEL"`

	Admin        string        `env:"TRIVIAPOOL_ADMIN,required"`
	AdminKeyHash string        `env:"TRIVIAPOOL_ADMIN_KEY_HASH,required"`
	Escrow       string        `env:"TRIVIAPOOL_ESCROW,required"`
	EntryFee     uint64        `env:"TRIVIAPOOL_ENTRY_FEE"     envDefault:"10"`
	AuthTTL      time.Duration `env:"TRIVIAPOOL_AUTH_TTL"      envDefault:"12h"`

	// DevLedger exposes mint and approve endpoints for local testing
	DevLedger bool `env:"TRIVIAPOOL_DEV_LEDGER"`

	RetryMaxAttempts     uint          `env:"TRIVIAPOOL_RETRY_MAX_ATTEMPTS"     envDefault:"3"`
	RetryInitialInterval time.Duration `env:"TRIVIAPOOL_RETRY_INITIAL_INTERVAL" envDefault:"100ms"`
	RetryMaxInterval     time.Duration `env:"TRIVIAPOOL_RETRY_MAX_INTERVAL"     envDefault:"2s"`
}

// Load reads the given dotenv files, then parses the environment.
// Missing dotenv files are ignored; variables already set win over file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendMemory, BackendRedis, BackendSQLite}, c.StorageType) {
		return fmt.Errorf("invalid TRIVIAPOOL_STORAGE %q: must be memory, redis or sqlite", c.StorageType)
	}
	if !slices.Contains([]string{BackendMemory, BackendRedis}, c.LedgerType) {
		return fmt.Errorf("invalid TRIVIAPOOL_LEDGER %q: must be memory or redis", c.LedgerType)
	}
	if c.NeedsRedis() && c.RedisURL == "" {
		return errors.New("TRIVIAPOOL_REDIS_URL required when redis storage, ledger or events are enabled")
	}
	if c.StorageType == BackendSQLite && c.SQLitePath == "" {
		return errors.New("TRIVIAPOOL_SQLITE_PATH required when TRIVIAPOOL_STORAGE=sqlite")
	}
	if c.EntryFee == 0 {
		return errors.New("TRIVIAPOOL_ENTRY_FEE must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("TRIVIAPOOL_PORT must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// NeedsRedis reports whether any component is backed by Redis
func (c *Config) NeedsRedis() bool {
	return c.StorageType == BackendRedis || c.LedgerType == BackendRedis || c.EventsChannel != ""
}
