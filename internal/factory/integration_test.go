package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
	redisstorage "github.com/mcoot/triviapool/internal/storage/redis"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) joinAll(id model.SessionID, players ...model.Address) {
	for _, p := range players {
		s.Require().NoError(s.app.Fund(s.ctx, p, TestEntryFee))
		_, err := s.app.SessionController.JoinSession(s.ctx, id, p)
		s.Require().NoError(err)
	}
}

// Test: Complete session flow from creation to paid winners
func (s *IntegrationSuite) TestCompleteSessionFlow() {
	c := s.app.SessionController

	created, err := c.CreateSession(s.ctx, TestAdmin, "Friday quiz", 4)
	s.Require().NoError(err)
	s.Equal(model.SessionID(1), created.ID)

	s.joinAll(created.ID, "0xalice", "0xbob", "0xcarol", "0xdave")

	pool, err := c.PrizePool(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(model.Amount(200), pool)

	s.app.MockClock.Advance(time.Minute)
	_, err = c.StartSession(s.ctx, TestAdmin, created.ID)
	s.Require().NoError(err)

	s.app.MockClock.Advance(10 * time.Minute)
	done, err := c.CompleteSession(s.ctx, TestAdmin, created.ID, []model.Address{"0xcarol", "0xalice", "0xdave"})
	s.Require().NoError(err)
	s.Equal(model.SessionStateCompleted, done.State)
	s.Empty(done.Pending())

	s.Equal(model.Amount(160), s.app.Balance(s.ctx, "0xcarol"))
	s.Equal(model.Amount(30), s.app.Balance(s.ctx, "0xalice"))
	s.Equal(model.Amount(10), s.app.Balance(s.ctx, "0xdave"))
	s.Equal(model.Amount(0), s.app.Balance(s.ctx, "0xbob"))
	s.Equal(model.Amount(0), s.app.Balance(s.ctx, TestEscrow))

	s.Equal([]model.EventType{
		model.EventSessionCreated,
		model.EventParticipantJoined, model.EventParticipantJoined,
		model.EventParticipantJoined, model.EventParticipantJoined,
		model.EventSessionStarted,
		model.EventSessionCompleted,
		model.EventPayoutIssued, model.EventPayoutIssued, model.EventPayoutIssued,
	}, s.app.Events.Types())
}

// Test: Cancelled session refunds everyone through the wired ledger
func (s *IntegrationSuite) TestCancelRefundsParticipants() {
	c := s.app.SessionController

	created, err := c.CreateSession(s.ctx, TestAdmin, "Cancelled quiz", 3)
	s.Require().NoError(err)
	s.joinAll(created.ID, "0xalice", "0xbob")

	cancelled, err := c.CancelSession(s.ctx, TestAdmin, created.ID)
	s.Require().NoError(err)
	s.Equal(model.SessionStateCancelled, cancelled.State)

	s.Equal(TestEntryFee, s.app.Balance(s.ctx, "0xalice"))
	s.Equal(TestEntryFee, s.app.Balance(s.ctx, "0xbob"))
	s.Len(s.app.Events.OfType(model.EventRefundIssued), 2)
}

// Test: A rejected payout is retried after the recipient recovers
func (s *IntegrationSuite) TestRetryAfterFailedPayout() {
	c := s.app.SessionController

	created, err := c.CreateSession(s.ctx, TestAdmin, "Flaky", 2)
	s.Require().NoError(err)
	s.joinAll(created.ID, "0xalice", "0xbob")
	_, err = c.StartSession(s.ctx, TestAdmin, created.ID)
	s.Require().NoError(err)

	s.app.MemLedger.RejectTransfersTo("0xbob", model.ErrInsufficientBalance)
	done, err := c.CompleteSession(s.ctx, TestAdmin, created.ID, []model.Address{"0xalice", "0xbob"})
	s.Require().NoError(err)
	s.Len(done.Pending(), 1)

	s.app.MemLedger.RejectTransfersTo("0xbob", nil)
	retried, err := c.RetryDisbursements(s.ctx, TestAdmin, created.ID)
	s.Require().NoError(err)
	s.Empty(retried.Pending())
	s.Equal(model.Amount(15), s.app.Balance(s.ctx, "0xbob"))
}

// Test: The auth service issues admin sessions for the configured key
func (s *IntegrationSuite) TestAdminLogin() {
	session, err := s.app.AuthService.Login(s.ctx, TestAdminKey)
	s.Require().NoError(err)
	s.Equal(TestAdmin, session.Address)

	_, err = s.app.AuthService.Login(s.ctx, "wrong")
	s.ErrorIs(err, auth.ErrInvalidCredentials)
}

// Test: Maintenance drops expired admin sessions
func (s *IntegrationSuite) TestRunMaintenance() {
	session, err := s.app.AuthService.Login(s.ctx, TestAdminKey)
	s.Require().NoError(err)
	s.app.MockClock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		s.app.RunMaintenance(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	s.Eventually(func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	_, err = s.app.AuthService.ValidateSession(session.Token)
	s.ErrorIs(err, auth.ErrInvalidSession)
}

type FactorySuite struct {
	suite.Suite
	hash string
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) SetupSuite() {
	hash, err := auth.HashKey("key")
	s.Require().NoError(err)
	s.hash = hash
}

func (s *FactorySuite) config() Config {
	return Config{
		Admin:      "0xadmin",
		Escrow:     "0xescrow",
		EntryFee:   10,
		AuthConfig: auth.Config{AdminKeyHash: s.hash},
	}
}

func (s *FactorySuite) TestDefaultsToMemory() {
	app, err := New(s.config())
	s.Require().NoError(err)
	defer app.Close()

	s.NotNil(app.SessionController)
	s.Equal(model.Address("0xescrow"), app.Ledger.Escrow())
}

func (s *FactorySuite) TestRedisBackends() {
	mr := miniredis.RunT(s.T())

	cfg := s.config()
	cfg.StorageType = StorageTypeRedis
	cfg.LedgerType = LedgerTypeRedis
	cfg.EventsChannel = "triviapool:test-events"
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()
	cfg.RedisConfig = &redisCfg

	app, err := New(cfg)
	s.Require().NoError(err)
	defer app.Close()

	created, err := app.SessionController.CreateSession(context.Background(), "0xadmin", "redis quiz", 2)
	s.Require().NoError(err)

	stored, err := app.Storage.GetSession(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal("redis quiz", stored.Title)
}

func (s *FactorySuite) TestSQLiteStorage() {
	cfg := s.config()
	cfg.StorageType = StorageTypeSQLite
	cfg.SQLitePath = filepath.Join(s.T().TempDir(), "pool.db")

	app, err := New(cfg)
	s.Require().NoError(err)
	defer app.Close()

	created, err := app.SessionController.CreateSession(context.Background(), "0xadmin", "sqlite quiz", 2)
	s.Require().NoError(err)
	s.Equal(model.SessionID(1), created.ID)
}

func (s *FactorySuite) TestRedisRequiresConfig() {
	cfg := s.config()
	cfg.StorageType = StorageTypeRedis

	_, err := New(cfg)
	s.ErrorContains(err, "RedisConfig")
}

func (s *FactorySuite) TestInvalidStorageType() {
	cfg := s.config()
	cfg.StorageType = "postgres"

	_, err := New(cfg)
	s.Error(err)
}

func (s *FactorySuite) TestZeroEscrowRejected() {
	cfg := s.config()
	cfg.Escrow = model.ZeroAddress

	_, err := New(cfg)
	s.ErrorIs(err, model.ErrZeroAddress)
}
