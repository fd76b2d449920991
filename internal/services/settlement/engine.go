// Package settlement moves a finished session's pool out of escrow.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcoot/triviapool/internal/dependencies/clock"
	"github.com/mcoot/triviapool/internal/events"
	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/telemetry"
)

// Config controls how each transfer out of escrow is retried
type Config struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns default retry settings
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Summary reports the outcome of one disbursement run
type Summary struct {
	Paid      int
	Failed    int
	Disbursed model.Amount
}

// Engine pushes planned disbursements to their recipients
type Engine struct {
	ledger    *ledger.Adapter
	publisher events.Publisher
	clock     clock.Clock
	metrics   *telemetry.Metrics
	cfg       Config
	logger    *slog.Logger
}

// New creates a settlement engine
func New(adapter *ledger.Adapter, publisher events.Publisher, clk clock.Clock, metrics *telemetry.Metrics, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = DefaultConfig().InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = DefaultConfig().MaxInterval
	}
	return &Engine{
		ledger:    adapter,
		publisher: publisher,
		clock:     clk,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "settlement")),
	}
}

// Recorder persists the session after one disbursement has changed
type Recorder func(ctx context.Context, session *model.Session) error

// Disburse attempts every unpaid disbursement of the session in plan order,
// recording the outcome on each entry. A failed transfer never stops the
// others. Paid entries are skipped, so running it again cannot pay twice.
//
// When record is set it is called after every transfer attempt, before the
// next one starts. If recording still fails after retries the run stops and
// the error is returned, since further transfers could not be tracked.
func (e *Engine) Disburse(ctx context.Context, session *model.Session, record Recorder) (Summary, error) {
	var summary Summary
	for _, i := range session.Pending() {
		d := &session.Disbursements[i]

		err := e.push(ctx, d)
		if err != nil {
			d.Status = model.DisbursementFailed
			d.LastError = err.Error()
			summary.Failed++
			e.metrics.DisbursementFailuresTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("kind", string(d.Kind))))
			e.logger.Error("disbursement failed",
				slog.Uint64("session_id", uint64(session.ID)),
				slog.String("kind", string(d.Kind)),
				slog.String("recipient", string(d.Recipient)),
				slog.String("amount", d.Amount.String()),
				slog.Int("attempts", d.Attempts),
				slog.Any("error", err))
			if err := e.record(ctx, session, record); err != nil {
				return summary, fmt.Errorf("record failed disbursement to %s: %w", d.Recipient, err)
			}
			continue
		}

		d.Status = model.DisbursementPaid
		d.LastError = ""
		d.PaidAt = e.clock.Now()
		summary.Paid++
		summary.Disbursed += d.Amount

		e.metrics.DisbursementsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(d.Kind))))
		e.metrics.DisbursedAmountTotal.Add(ctx, telemetry.Units(uint64(d.Amount)),
			metric.WithAttributes(attribute.String("kind", string(d.Kind))))

		if err := e.record(ctx, session, record); err != nil {
			e.logger.Error("paid disbursement not recorded",
				slog.Uint64("session_id", uint64(session.ID)),
				slog.String("recipient", string(d.Recipient)),
				slog.String("amount", d.Amount.String()),
				slog.Any("error", err))
			return summary, fmt.Errorf("record payment to %s: %w", d.Recipient, err)
		}

		eventType := model.EventPayoutIssued
		if d.Kind == model.DisbursementRefund {
			eventType = model.EventRefundIssued
		}
		e.publisher.Publish(ctx, events.NewEvent(d.PaidAt, eventType, session.ID,
			model.TransferPayload{Recipient: d.Recipient, Amount: d.Amount}))
	}
	return summary, nil
}

// record persists the session, retrying with the transfer backoff settings
func (e *Engine) record(ctx context.Context, session *model.Session, record Recorder) error {
	if record == nil {
		return nil
	}
	session.UpdatedAt = e.clock.Now()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, record(ctx, session)
	}, backoff.WithBackOff(e.newBackOff()), backoff.WithMaxTries(e.cfg.MaxAttempts))
	return err
}

// push transfers one disbursement, retrying transient ledger failures
func (e *Engine) push(ctx context.Context, d *model.Disbursement) error {
	op := func() (struct{}, error) {
		d.Attempts++
		err := e.ledger.Push(ctx, d.Recipient, d.Amount)
		if err != nil && isPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(e.cfg.MaxAttempts),
	)
	return err
}

func (e *Engine) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialInterval
	b.MaxInterval = e.cfg.MaxInterval
	return b
}

// isPermanent reports ledger rejections that retrying cannot fix
func isPermanent(err error) bool {
	return errors.Is(err, model.ErrZeroAddress) ||
		errors.Is(err, model.ErrInsufficientBalance) ||
		errors.Is(err, model.ErrAmountOverflow) ||
		errors.Is(err, model.ErrReentrantCall)
}
