package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcoot/triviapool/internal/dependencies/clock"
	"github.com/mcoot/triviapool/internal/events"
	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/settlement"
	"github.com/mcoot/triviapool/internal/storage"
	"github.com/mcoot/triviapool/internal/telemetry"
)

// Config holds the system-wide session settings
type Config struct {
	// Admin is the only account allowed to create and drive sessions
	Admin model.Address

	// EntryFee is charged to every participant of sessions created while it is in force
	EntryFee model.Amount
}

// Controller manages the session lifecycle and its escrowed pool.
//
// Every mutating operation holds a single lock from its first read until all
// ledger transfers and state writes are done, so operations on any sessions
// are strictly serialized.
type Controller struct {
	storage   storage.Storage
	ledger    *ledger.Adapter
	engine    *settlement.Engine
	publisher events.Publisher
	clock     clock.Clock
	metrics   *telemetry.Metrics
	cfg       Config
	logger    *slog.Logger

	mu sync.Mutex
	// unrecorded holds sessions whose transfers went out but could not be saved
	unrecorded map[model.SessionID]*model.Session
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	adapter *ledger.Adapter,
	engine *settlement.Engine,
	publisher events.Publisher,
	clock clock.Clock,
	metrics *telemetry.Metrics,
	cfg Config,
	logger *slog.Logger,
) (*Controller, error) {
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("admin account: %w", model.ErrZeroAddress)
	}
	if cfg.EntryFee == 0 {
		return nil, model.ErrInvalidEntryFee
	}
	return &Controller{
		storage:    storage,
		ledger:     adapter,
		engine:     engine,
		publisher:  publisher,
		clock:      clock,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "session")),
		unrecorded: make(map[model.SessionID]*model.Session),
	}, nil
}

// Admin returns the administrator account
func (c *Controller) Admin() model.Address {
	return c.cfg.Admin
}

// EntryFee returns the fee charged to sessions created now
func (c *Controller) EntryFee() model.Amount {
	return c.cfg.EntryFee
}

// Escrow returns the account holding every session pool
func (c *Controller) Escrow() model.Address {
	return c.ledger.Escrow()
}

// CreateSession opens a new session accepting up to maxParticipants entries
func (c *Controller) CreateSession(ctx context.Context, caller model.Address, title string, maxParticipants uint32) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.requireAdmin(caller); err != nil {
		return nil, err
	}
	if maxParticipants == 0 {
		return nil, model.ErrInvalidCapacity
	}

	id, err := c.storage.NextSessionID(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	session := &model.Session{
		ID:              id,
		Title:           title,
		EntryFee:        c.cfg.EntryFee,
		MaxParticipants: maxParticipants,
		State:           model.SessionStateOpen,
		Participants:    []model.Address{},
		Winners:         []model.Address{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.metrics.SessionsCreatedTotal.Add(ctx, 1)
	c.logger.Info("session created",
		slog.Uint64("session_id", uint64(id)),
		slog.String("title", title),
		slog.Uint64("max_participants", uint64(maxParticipants)))
	c.publisher.Publish(ctx, events.NewEvent(now, model.EventSessionCreated, id,
		model.SessionCreatedPayload{Title: title, MaxParticipants: maxParticipants}))

	return session, nil
}

// JoinSession pulls the entry fee from participant into escrow and records the entry.
// The participant must have authorized the escrow for at least the fee beforehand.
func (c *Controller) JoinSession(ctx context.Context, id model.SessionID, participant model.Address) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := c.join(ctx, id, participant)
	if err != nil {
		c.metrics.JoinsRejectedTotal.Add(ctx, 1)
		return nil, err
	}
	return session, nil
}

func (c *Controller) join(ctx context.Context, id model.SessionID, participant model.Address) (*model.Session, error) {
	if participant.IsZero() {
		return nil, model.ErrZeroAddress
	}
	if participant == c.ledger.Escrow() {
		return nil, model.ErrEscrowParticipant
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.State != model.SessionStateOpen {
		return nil, model.ErrInvalidState
	}
	if session.HasJoined(participant) {
		return nil, model.ErrAlreadyJoined
	}
	if session.IsFull() {
		return nil, model.ErrSessionFull
	}

	fee := session.EntryFee
	allowance, err := c.ledger.AllowanceOf(ctx, participant)
	if err != nil {
		return nil, err
	}
	if allowance < fee {
		return nil, model.ErrInsufficientAllowance
	}
	pool, carry := bits.Add64(uint64(session.PrizePool), uint64(fee), 0)
	if carry != 0 {
		return nil, model.ErrAmountOverflow
	}

	if err := c.ledger.Pull(ctx, participant, fee); err != nil {
		return nil, err
	}

	session.AddParticipant(participant)
	session.PrizePool = model.Amount(pool)
	session.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveSession(ctx, session); err != nil {
		c.returnFee(ctx, session.ID, participant, fee)
		return nil, err
	}

	c.metrics.ParticipantsJoinedTotal.Add(ctx, 1)
	c.metrics.EscrowPulledTotal.Add(ctx, telemetry.Units(uint64(fee)))
	c.logger.Info("participant joined",
		slog.Uint64("session_id", uint64(id)),
		slog.String("participant", string(participant)),
		slog.String("prize_pool", session.PrizePool.String()))
	c.publisher.Publish(ctx, events.NewEvent(session.UpdatedAt, model.EventParticipantJoined, id,
		model.ParticipantJoinedPayload{Participant: participant}))

	return session, nil
}

// returnFee reverses a pull whose entry could not be recorded
func (c *Controller) returnFee(ctx context.Context, id model.SessionID, participant model.Address, fee model.Amount) {
	if err := c.ledger.Push(ctx, participant, fee); err != nil {
		c.logger.Error("failed to return entry fee after save failure",
			slog.Uint64("session_id", uint64(id)),
			slog.String("participant", string(participant)),
			slog.String("amount", fee.String()),
			slog.Any("error", err))
		return
	}
	c.logger.Warn("entry fee returned after save failure",
		slog.Uint64("session_id", uint64(id)),
		slog.String("participant", string(participant)))
}

// StartSession closes entry and marks play as underway
func (c *Controller) StartSession(ctx context.Context, caller model.Address, id model.SessionID) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.requireAdmin(caller); err != nil {
		return nil, err
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(session.State, model.SessionStateInProgress) {
		return nil, model.ErrInvalidState
	}
	if len(session.Participants) == 0 {
		return nil, model.ErrNoParticipants
	}

	now := c.clock.Now()
	session.State = model.SessionStateInProgress
	session.StartTime = now
	session.UpdatedAt = now

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("session started",
		slog.Uint64("session_id", uint64(id)),
		slog.Int("participants", len(session.Participants)))
	c.publisher.Publish(ctx, events.NewEvent(now, model.EventSessionStarted, id, nil))

	return session, nil
}

// CompleteSession declares up to three ranked winners and pays out the pool.
// The session is completed once validation passes even if some payouts fail;
// failed payouts stay recorded and can be retried with RetryDisbursements.
func (c *Controller) CompleteSession(ctx context.Context, caller model.Address, id model.SessionID, winners []model.Address) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.requireAdmin(caller); err != nil {
		return nil, err
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(session.State, model.SessionStateCompleted) {
		return nil, model.ErrInvalidState
	}
	if err := validateWinners(session, winners); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	session.State = model.SessionStateCompleted
	session.EndTime = now
	session.UpdatedAt = now
	session.Winners = slices.Clone(winners)
	session.Disbursements = settlement.PayoutPlan(session.PrizePool, session.Winners)

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.metrics.SessionsFinishedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", string(session.State))))
	c.logger.Info("session completed",
		slog.Uint64("session_id", uint64(id)),
		slog.Int("winners", len(winners)),
		slog.String("prize_pool", session.PrizePool.String()))
	c.publisher.Publish(ctx, events.NewEvent(now, model.EventSessionCompleted, id,
		model.SessionCompletedPayload{Winners: slices.Clone(session.Winners)}))

	return c.disburse(ctx, session)
}

// CancelSession aborts a session and refunds every participant's entry fee
func (c *Controller) CancelSession(ctx context.Context, caller model.Address, id model.SessionID) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.requireAdmin(caller); err != nil {
		return nil, err
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(session.State, model.SessionStateCancelled) {
		return nil, model.ErrInvalidState
	}
	if len(session.Participants) == 0 {
		return nil, model.ErrNothingToRefund
	}

	now := c.clock.Now()
	session.State = model.SessionStateCancelled
	session.EndTime = now
	session.UpdatedAt = now
	session.Disbursements = settlement.RefundPlan(session.EntryFee, session.Participants)

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.metrics.SessionsFinishedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", string(session.State))))
	c.logger.Info("session cancelled",
		slog.Uint64("session_id", uint64(id)),
		slog.Int("refunds", len(session.Disbursements)))
	c.publisher.Publish(ctx, events.NewEvent(now, model.EventSessionCancelled, id, nil))

	return c.disburse(ctx, session)
}

// RetryDisbursements re-attempts the unpaid payouts or refunds of a finished session
func (c *Controller) RetryDisbursements(ctx context.Context, caller model.Address, id model.SessionID) (*model.Session, error) {
	ctx, unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.requireAdmin(caller); err != nil {
		return nil, err
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if held, ok := c.unrecorded[id]; ok {
		// Storage is behind the ledger, catch it up before paying anything
		held.UpdatedAt = c.clock.Now()
		if err := c.storage.SaveSession(ctx, held); err != nil {
			return nil, fmt.Errorf("record disbursements: %w", err)
		}
		delete(c.unrecorded, id)
		c.logger.Info("recorded disbursements from earlier run",
			slog.Uint64("session_id", uint64(id)))
		session = held
	}
	if !session.State.IsTerminal() {
		return nil, model.ErrInvalidState
	}
	if len(session.Pending()) == 0 {
		return session, nil
	}

	return c.disburse(ctx, session)
}

// disburse runs the settlement engine, saving the session after every
// transfer so a paid entry is never left recorded as pending
func (c *Controller) disburse(ctx context.Context, session *model.Session) (*model.Session, error) {
	summary, err := c.engine.Disburse(ctx, session, c.storage.SaveSession)
	if err != nil {
		c.unrecorded[session.ID] = session
		c.logger.Error("failed to record disbursement results",
			slog.Uint64("session_id", uint64(session.ID)),
			slog.Int("paid", summary.Paid),
			slog.Int("failed", summary.Failed),
			slog.Any("error", err))
		return nil, fmt.Errorf("record disbursements: %w", err)
	}

	if summary.Failed > 0 {
		c.logger.Warn("session has undelivered disbursements",
			slog.Uint64("session_id", uint64(session.ID)),
			slog.Int("paid", summary.Paid),
			slog.Int("failed", summary.Failed))
	}
	return session, nil
}

func (c *Controller) requireAdmin(caller model.Address) error {
	if caller != c.cfg.Admin {
		return model.ErrNotAdministrator
	}
	return nil
}

// validateWinners checks rank list size, membership and uniqueness
func validateWinners(session *model.Session, winners []model.Address) error {
	if len(winners) == 0 || len(winners) > model.MaxWinners {
		return model.ErrInvalidWinnerCount
	}
	for i, w := range winners {
		if !session.HasJoined(w) {
			return fmt.Errorf("%w: %s", model.ErrInvalidWinner, w)
		}
		if slices.Contains(winners[:i], w) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateWinner, w)
		}
	}
	return nil
}

// IsRejection reports whether err is a precondition failure rather than an
// infrastructure fault
func IsRejection(err error) bool {
	for _, target := range []error{
		model.ErrSessionNotFound, model.ErrInvalidCapacity, model.ErrInvalidState,
		model.ErrAlreadyJoined, model.ErrSessionFull, model.ErrNoParticipants,
		model.ErrNothingToRefund, model.ErrInvalidWinnerCount, model.ErrInvalidWinner,
		model.ErrDuplicateWinner, model.ErrInsufficientAllowance, model.ErrInsufficientBalance,
		model.ErrZeroAddress, model.ErrAmountOverflow, model.ErrNotAdministrator,
		model.ErrReentrantCall, model.ErrEscrowParticipant,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
