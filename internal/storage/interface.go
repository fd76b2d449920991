package storage

import (
	"context"

	"github.com/mcoot/triviapool/internal/model"
)

// Storage defines the interface for session persistence
type Storage interface {
	// NextSessionID allocates the next sequential session id. IDs start at 1
	// and are never reused, even if the session is never saved.
	NextSessionID(ctx context.Context) (model.SessionID, error)

	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)

	// ListSessions returns every session ordered by id
	ListSessions(ctx context.Context) ([]*model.Session, error)
}
