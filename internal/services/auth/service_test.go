package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/triviapool/internal/dependencies/mocks"
	"github.com/mcoot/triviapool/internal/model"
)

const adminKey = "correct-horse-battery-staple"

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	s.Require().NoError(err)

	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service, err = New(s.clock, Config{
		Admin:           "0xadmin",
		AdminKeyHash:    string(hash),
		SessionDuration: time.Hour,
	})
	s.Require().NoError(err)
	s.ctx = context.Background()
}

// New tests

func (s *ServiceSuite) TestNewRejectsZeroAdmin() {
	_, err := New(s.clock, Config{Admin: model.ZeroAddress, AdminKeyHash: "x"})
	s.ErrorIs(err, model.ErrZeroAddress)
}

func (s *ServiceSuite) TestNewRejectsMalformedHash() {
	_, err := New(s.clock, Config{Admin: "0xadmin", AdminKeyHash: "plaintext"})
	s.Error(err)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	session, err := s.service.Login(s.ctx, adminKey)
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal(model.Address("0xadmin"), session.Address)
	s.Equal(s.clock.Now().Add(time.Hour), session.ExpiresAt)
}

func (s *ServiceSuite) TestLoginWrongKey() {
	_, err := s.service.Login(s.ctx, "guess")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginIssuesDistinctTokens() {
	first, _ := s.service.Login(s.ctx, adminKey)
	second, _ := s.service.Login(s.ctx, adminKey)
	s.NotEqual(first.Token, second.Token)
}

// ValidateSession tests

func (s *ServiceSuite) TestValidateSessionSucceeds() {
	session, _ := s.service.Login(s.ctx, adminKey)

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.Address, validated.Address)
}

func (s *ServiceSuite) TestValidateSessionUnknownToken() {
	_, err := s.service.ValidateSession("adm_nope")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionExpired() {
	session, _ := s.service.Login(s.ctx, adminKey)
	s.clock.Advance(2 * time.Hour)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSession() {
	session, _ := s.service.Login(s.ctx, adminKey)
	s.service.InvalidateSession(session.Token)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestCleanExpiredSessions() {
	_, _ = s.service.Login(s.ctx, adminKey)
	s.clock.Advance(30 * time.Minute)
	fresh, _ := s.service.Login(s.ctx, adminKey)
	s.clock.Advance(45 * time.Minute)

	s.Equal(1, s.service.CleanExpiredSessions())

	_, err := s.service.ValidateSession(fresh.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestHashKeyRoundTrips() {
	hash, err := HashKey("secret")
	s.Require().NoError(err)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}
