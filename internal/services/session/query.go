package session

import (
	"context"
	"errors"
	"slices"

	"github.com/mcoot/triviapool/internal/model"
)

// Queries never take the mutation lock and read committed state only.
// Unknown session ids yield zero values rather than errors.

// GetSession returns a session by id
func (c *Controller) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return c.storage.GetSession(ctx, id)
}

// ListSessions returns every session ordered by id
func (c *Controller) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return c.storage.ListSessions(ctx)
}

// Participants returns the participants in join order
func (c *Controller) Participants(ctx context.Context, id model.SessionID) ([]model.Address, error) {
	session, err := c.lookup(ctx, id)
	if session == nil {
		return []model.Address{}, err
	}
	return slices.Clone(session.Participants), nil
}

// Winners returns the winners in rank order, empty until the session completes
func (c *Controller) Winners(ctx context.Context, id model.SessionID) ([]model.Address, error) {
	session, err := c.lookup(ctx, id)
	if session == nil {
		return []model.Address{}, err
	}
	return slices.Clone(session.Winners), nil
}

// IsParticipant reports whether addr has joined the session
func (c *Controller) IsParticipant(ctx context.Context, id model.SessionID, addr model.Address) (bool, error) {
	session, err := c.lookup(ctx, id)
	if session == nil {
		return false, err
	}
	return session.HasJoined(addr), nil
}

// State returns the lifecycle state, SessionStateUnknown for unknown ids
func (c *Controller) State(ctx context.Context, id model.SessionID) (model.SessionState, error) {
	session, err := c.lookup(ctx, id)
	if session == nil {
		return model.SessionStateUnknown, err
	}
	return session.State, nil
}

// PrizePool returns the amount collected into the session's escrow
func (c *Controller) PrizePool(ctx context.Context, id model.SessionID) (model.Amount, error) {
	session, err := c.lookup(ctx, id)
	if session == nil {
		return 0, err
	}
	return session.PrizePool, nil
}

// lookup returns nil without error for unknown sessions
func (c *Controller) lookup(ctx context.Context, id model.SessionID) (*model.Session, error) {
	session, err := c.storage.GetSession(ctx, id)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
