package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviapool/internal/dependencies/mocks"
	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/ledger/memory"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/telemetry"
	"github.com/mcoot/triviapool/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	token    *memory.Ledger
	recorder *testutil.Recorder
	clock    *mocks.MockClock
	engine   *Engine
	ctx      context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.token = memory.New()
	s.recorder = testutil.NewRecorder()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	adapter, err := ledger.New(s.token, "escrow")
	s.Require().NoError(err)

	cfg := Config{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	s.engine = New(adapter, s.recorder, s.clock, telemetry.GetMetrics(), cfg, testutil.NopLogger())
}

func (s *EngineSuite) fundEscrow(amount model.Amount) {
	s.Require().NoError(s.token.Mint(s.ctx, "escrow", amount))
}

func (s *EngineSuite) balance(addr model.Address) model.Amount {
	bal, err := s.token.BalanceOf(s.ctx, addr)
	s.Require().NoError(err)
	return bal
}

func (s *EngineSuite) TestDisbursePaysEveryEntry() {
	s.fundEscrow(100)
	session := &model.Session{ID: 1, Disbursements: PayoutPlan(100, []model.Address{"a", "b", "c"})}

	summary, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)

	s.Equal(Summary{Paid: 3, Disbursed: 100}, summary)
	s.Equal(model.Amount(80), s.balance("a"))
	s.Equal(model.Amount(15), s.balance("b"))
	s.Equal(model.Amount(5), s.balance("c"))
	for _, d := range session.Disbursements {
		s.Equal(model.DisbursementPaid, d.Status)
		s.Equal(1, d.Attempts)
		s.Equal(s.clock.Now(), d.PaidAt)
	}

	issued := s.recorder.OfType(model.EventPayoutIssued)
	s.Require().Len(issued, 3)
	s.Equal(model.TransferPayload{Recipient: "a", Amount: 80}, issued[0].Payload)
	s.Equal(model.SessionID(1), issued[0].SessionID)
}

func (s *EngineSuite) TestDisburseRefundEmitsRefundEvents() {
	s.fundEscrow(20)
	session := &model.Session{ID: 2, Disbursements: RefundPlan(10, []model.Address{"x", "y"})}

	_, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)

	s.Equal([]model.EventType{model.EventRefundIssued, model.EventRefundIssued}, s.recorder.Types())
}

func (s *EngineSuite) TestFailedTransferDoesNotBlockOthers() {
	s.fundEscrow(100)
	blocked := errors.New("recipient rejects transfers")
	s.token.RejectTransfersTo("a", blocked)
	session := &model.Session{ID: 1, Disbursements: PayoutPlan(100, []model.Address{"a", "b", "c"})}

	summary, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)

	s.Equal(Summary{Paid: 2, Failed: 1, Disbursed: 20}, summary)
	s.Equal(model.DisbursementFailed, session.Disbursements[0].Status)
	s.Equal(3, session.Disbursements[0].Attempts)
	s.Contains(session.Disbursements[0].LastError, "recipient rejects transfers")
	s.Equal(model.Amount(80), s.balance("escrow"))
	s.Len(s.recorder.OfType(model.EventPayoutIssued), 2)
}

func (s *EngineSuite) TestPermanentFailureIsNotRetried() {
	// Escrow holds nothing, so the balance check fails outright
	session := &model.Session{ID: 1, Disbursements: RefundPlan(10, []model.Address{"x"})}

	summary, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)

	s.Equal(1, summary.Failed)
	s.Equal(1, session.Disbursements[0].Attempts)
	s.Empty(s.recorder.Events())
}

func (s *EngineSuite) TestDisburseAgainPaysOnlyOutstanding() {
	s.fundEscrow(100)
	s.token.RejectTransfersTo("b", errors.New("offline"))
	session := &model.Session{ID: 1, Disbursements: PayoutPlan(100, []model.Address{"a", "b"})}
	_, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)
	s.recorder.Reset()

	s.token.RejectTransfersTo("b", nil)
	summary, err := s.engine.Disburse(s.ctx, session, nil)
	s.Require().NoError(err)

	s.Equal(Summary{Paid: 1, Disbursed: 15}, summary)
	s.Equal(model.Amount(80), s.balance("a"))
	s.Equal(model.Amount(15), s.balance("b"))
	s.Empty(session.Disbursements[1].LastError)
	s.Len(s.recorder.Events(), 1)
}

func (s *EngineSuite) TestRecordRunsAfterEveryTransfer() {
	s.fundEscrow(100)
	s.token.RejectTransfersTo("b", errors.New("offline"))
	session := &model.Session{ID: 1, Disbursements: PayoutPlan(100, []model.Address{"a", "b", "c"})}

	var seen [][]model.DisbursementStatus
	record := func(_ context.Context, sess *model.Session) error {
		var statuses []model.DisbursementStatus
		for _, d := range sess.Disbursements {
			statuses = append(statuses, d.Status)
		}
		seen = append(seen, statuses)
		return nil
	}

	_, err := s.engine.Disburse(s.ctx, session, record)
	s.Require().NoError(err)

	s.Equal([][]model.DisbursementStatus{
		{model.DisbursementPaid, model.DisbursementPending, model.DisbursementPending},
		{model.DisbursementPaid, model.DisbursementFailed, model.DisbursementPending},
		{model.DisbursementPaid, model.DisbursementFailed, model.DisbursementPaid},
	}, seen)
}

func (s *EngineSuite) TestRecordFailureStopsRemainingTransfers() {
	s.fundEscrow(100)
	session := &model.Session{ID: 1, Disbursements: PayoutPlan(100, []model.Address{"a", "b"})}

	calls := 0
	record := func(context.Context, *model.Session) error {
		calls++
		return errors.New("storage unavailable")
	}

	summary, err := s.engine.Disburse(s.ctx, session, record)
	s.ErrorContains(err, "storage unavailable")

	s.Equal(3, calls)
	s.Equal(1, summary.Paid)
	s.Equal(model.Amount(80), s.balance("a"))
	s.Zero(s.balance("b"))
	s.Equal(model.DisbursementPending, session.Disbursements[1].Status)
	s.Empty(s.recorder.Events())
}

func (s *EngineSuite) TestRecordRetriesTransientFailures() {
	s.fundEscrow(10)
	session := &model.Session{ID: 1, Disbursements: RefundPlan(10, []model.Address{"x"})}

	calls := 0
	record := func(context.Context, *model.Session) error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return nil
	}

	summary, err := s.engine.Disburse(s.ctx, session, record)
	s.Require().NoError(err)
	s.Equal(2, calls)
	s.Equal(1, summary.Paid)
	s.Len(s.recorder.OfType(model.EventRefundIssued), 1)
}

func (s *EngineSuite) TestNewAppliesDefaults() {
	adapter, _ := ledger.New(s.token, "escrow")
	engine := New(adapter, s.recorder, s.clock, telemetry.GetMetrics(), Config{}, testutil.NopLogger())
	s.Equal(DefaultConfig(), engine.cfg)
}
