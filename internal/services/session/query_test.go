package session

import (
	"github.com/mcoot/triviapool/internal/model"
)

// Query tests share the controller suite fixtures

func (s *ControllerSuite) TestQueriesUnknownSessionReturnZeroValues() {
	participants, err := s.controller.Participants(s.ctx, 99)
	s.Require().NoError(err)
	s.Empty(participants)
	s.NotNil(participants)

	winners, err := s.controller.Winners(s.ctx, 99)
	s.Require().NoError(err)
	s.Empty(winners)

	member, err := s.controller.IsParticipant(s.ctx, 99, "alice")
	s.Require().NoError(err)
	s.False(member)

	state, err := s.controller.State(s.ctx, 99)
	s.Require().NoError(err)
	s.Equal(model.SessionStateUnknown, state)

	pool, err := s.controller.PrizePool(s.ctx, 99)
	s.Require().NoError(err)
	s.Zero(pool)
}

func (s *ControllerSuite) TestQueriesReflectCommittedState() {
	id := s.startedSession("alice", "bob")
	_, err := s.controller.CompleteSession(s.ctx, admin, id, []model.Address{"bob", "alice"})
	s.Require().NoError(err)

	participants, _ := s.controller.Participants(s.ctx, id)
	s.Equal([]model.Address{"alice", "bob"}, participants)

	winners, _ := s.controller.Winners(s.ctx, id)
	s.Equal([]model.Address{"bob", "alice"}, winners)

	member, _ := s.controller.IsParticipant(s.ctx, id, "bob")
	s.True(member)
	member, _ = s.controller.IsParticipant(s.ctx, id, "carol")
	s.False(member)

	state, _ := s.controller.State(s.ctx, id)
	s.Equal(model.SessionStateCompleted, state)

	pool, _ := s.controller.PrizePool(s.ctx, id)
	s.Equal(2*fee, pool)
}

func (s *ControllerSuite) TestQueryResultsAreCopies() {
	id := s.createSession(2)
	s.joinAll(id, "alice")

	participants, _ := s.controller.Participants(s.ctx, id)
	participants[0] = "mallory"

	again, _ := s.controller.Participants(s.ctx, id)
	s.Equal([]model.Address{"alice"}, again)
}

func (s *ControllerSuite) TestGetAndListSessions() {
	first := s.createSession(2)
	second := s.createSession(3)

	session, err := s.controller.GetSession(s.ctx, second)
	s.Require().NoError(err)
	s.Equal(uint32(3), session.MaxParticipants)

	_, err = s.controller.GetSession(s.ctx, 404)
	s.ErrorIs(err, model.ErrSessionNotFound)

	sessions, err := s.controller.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(first, sessions[0].ID)
	s.Equal(second, sessions[1].ID)
}

func (s *ControllerSuite) TestPoolInvariantHoldsWhileOpen() {
	id := s.createSession(5)
	for i, p := range []model.Address{"a", "b", "c", "d"} {
		s.joinAll(id, p)
		pool, _ := s.controller.PrizePool(s.ctx, id)
		s.Equal(model.Amount(i+1)*fee, pool)
	}
}
