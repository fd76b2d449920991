// Package sqlite provides a SQLite-backed session storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/storage"
	"github.com/mcoot/triviapool/internal/storage/sqlite/migrations"
)

// Storage persists sessions in SQLite
type Storage struct {
	sqlDB *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open opens a SQLite database at path and applies embedded migrations
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Storage) NextSessionID(ctx context.Context) (model.SessionID, error) {
	res, err := s.sqlDB.ExecContext(ctx, "INSERT INTO session_ids DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	return model.SessionID(id), nil
}

const upsertSession = `
INSERT INTO sessions (
    id, title, entry_fee, prize_pool, max_participants, state,
    participants, winners, disbursements,
    start_time, end_time, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    entry_fee = excluded.entry_fee,
    prize_pool = excluded.prize_pool,
    max_participants = excluded.max_participants,
    state = excluded.state,
    participants = excluded.participants,
    winners = excluded.winners,
    disbursements = excluded.disbursements,
    start_time = excluded.start_time,
    end_time = excluded.end_time,
    updated_at = excluded.updated_at
`

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	participants, err := marshalList(session.Participants)
	if err != nil {
		return err
	}
	winners, err := marshalList(session.Winners)
	if err != nil {
		return err
	}
	disbursements, err := marshalList(session.Disbursements)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, upsertSession,
		int64(session.ID),
		session.Title,
		session.EntryFee.String(),
		session.PrizePool.String(),
		int64(session.MaxParticipants),
		string(session.State),
		participants,
		winners,
		disbursements,
		toMillis(session.StartTime),
		toMillis(session.EndTime),
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session %d: %w", session.ID, err)
	}
	return nil
}

const selectSession = `
SELECT id, title, entry_fee, prize_pool, max_participants, state,
       participants, winners, disbursements,
       start_time, end_time, created_at, updated_at
FROM sessions`

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectSession+" WHERE id = ?", int64(id))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return session, nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.sqlDB.QueryContext(ctx, selectSession+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		id, maxParticipants                      int64
		entryFee, prizePool, state               string
		participants, winners, disbursements     string
		startTime, endTime, createdAt, updatedAt int64
		session                                  model.Session
	)
	if err := row.Scan(
		&id, &session.Title, &entryFee, &prizePool, &maxParticipants, &state,
		&participants, &winners, &disbursements,
		&startTime, &endTime, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if session.EntryFee, err = model.ParseAmount(entryFee); err != nil {
		return nil, fmt.Errorf("entry fee: %w", err)
	}
	if session.PrizePool, err = model.ParseAmount(prizePool); err != nil {
		return nil, fmt.Errorf("prize pool: %w", err)
	}
	if err := json.Unmarshal([]byte(participants), &session.Participants); err != nil {
		return nil, fmt.Errorf("participants: %w", err)
	}
	if err := json.Unmarshal([]byte(winners), &session.Winners); err != nil {
		return nil, fmt.Errorf("winners: %w", err)
	}
	if err := json.Unmarshal([]byte(disbursements), &session.Disbursements); err != nil {
		return nil, fmt.Errorf("disbursements: %w", err)
	}

	session.ID = model.SessionID(id)
	session.MaxParticipants = uint32(maxParticipants)
	session.State = model.SessionState(state)
	session.StartTime = fromMillis(startTime)
	session.EndTime = fromMillis(endTime)
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	return &session, nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Zero times are stored as 0 so unset timestamps survive a round trip

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
