package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	logger *slog.Logger
}

// NewClient opens a connection pool and verifies the server is reachable
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// New creates a new Redis storage instance
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient creates a Redis storage with an existing client
func NewWithClient(client *redis.Client, logger *slog.Logger) *Storage {
	return &Storage{
		client: client,
		logger: logger.With(slog.String("component", "redis-storage")),
	}
}

// Client returns the underlying client so other components can share the pool
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) NextSessionID(ctx context.Context) (model.SessionID, error) {
	id, err := s.client.Incr(ctx, sessionSeqKey()).Result()
	if err != nil {
		return 0, err
	}
	return model.SessionID(id), nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	key := sessionKey(session.ID)

	// Use a transaction so the record and its index entry land together
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.ZAdd(ctx, sessionIndexKey(), redis.Z{Score: float64(session.ID), Member: key})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.Session, error) {
	keys, err := s.client.ZRange(ctx, sessionIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.Session{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(values))
	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			s.logger.Warn("indexed session missing", slog.String("key", keys[i]))
			continue
		}
		var session model.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			s.logger.Error("skipping undecodable session",
				slog.String("key", keys[i]),
				slog.Any("error", err))
			continue
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}
