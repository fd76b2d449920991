// Package telemetry registers the OpenTelemetry instruments used by the escrow.
package telemetry

import (
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/mcoot/triviapool"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session lifecycle
	SessionsCreatedTotal    metric.Int64Counter
	SessionsFinishedTotal   metric.Int64Counter
	ParticipantsJoinedTotal metric.Int64Counter
	JoinsRejectedTotal      metric.Int64Counter

	// Escrow movements
	EscrowPulledTotal         metric.Int64Counter
	DisbursementsTotal        metric.Int64Counter
	DisbursedAmountTotal      metric.Int64Counter
	DisbursementFailuresTotal metric.Int64Counter

	// Guards
	ReentrantCallsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics creates all instruments on the given provider
func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"triviapool.sessions.created.total",
		metric.WithDescription("Total number of sessions created"),
		metric.WithUnit("{session}"),
	)

	m.SessionsFinishedTotal, _ = meter.Int64Counter(
		"triviapool.sessions.finished.total",
		metric.WithDescription("Total number of sessions completed or cancelled"),
		metric.WithUnit("{session}"),
	)

	m.ParticipantsJoinedTotal, _ = meter.Int64Counter(
		"triviapool.participants.joined.total",
		metric.WithDescription("Total number of successful session entries"),
		metric.WithUnit("{participant}"),
	)

	m.JoinsRejectedTotal, _ = meter.Int64Counter(
		"triviapool.participants.rejected.total",
		metric.WithDescription("Total number of rejected session entries"),
		metric.WithUnit("{participant}"),
	)

	m.EscrowPulledTotal, _ = meter.Int64Counter(
		"triviapool.escrow.pulled.total",
		metric.WithDescription("Total base units pulled into escrow"),
		metric.WithUnit("{unit}"),
	)

	m.DisbursementsTotal, _ = meter.Int64Counter(
		"triviapool.disbursements.total",
		metric.WithDescription("Total number of successful payouts and refunds"),
		metric.WithUnit("{transfer}"),
	)

	m.DisbursedAmountTotal, _ = meter.Int64Counter(
		"triviapool.disbursements.amount.total",
		metric.WithDescription("Total base units pushed out of escrow"),
		metric.WithUnit("{unit}"),
	)

	m.DisbursementFailuresTotal, _ = meter.Int64Counter(
		"triviapool.disbursements.failures.total",
		metric.WithDescription("Total number of payouts and refunds that could not be delivered"),
		metric.WithUnit("{transfer}"),
	)

	m.ReentrantCallsTotal, _ = meter.Int64Counter(
		"triviapool.guard.reentrant.total",
		metric.WithDescription("Total number of mutating calls rejected as reentrant"),
		metric.WithUnit("{call}"),
	)

	return m
}

// Units converts a ledger amount to a counter increment, saturating at the
// largest value an int64 counter accepts.
func Units(amount uint64) int64 {
	if amount > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(amount)
}
