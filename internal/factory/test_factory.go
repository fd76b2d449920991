package factory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/triviapool/internal/dependencies/mocks"
	memledger "github.com/mcoot/triviapool/internal/ledger/memory"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
	"github.com/mcoot/triviapool/internal/services/settlement"
	memstorage "github.com/mcoot/triviapool/internal/storage/memory"
	"github.com/mcoot/triviapool/internal/telemetry"
	"github.com/mcoot/triviapool/internal/testutil"
)

// Fixed accounts and credentials of a TestApp
const (
	TestAdmin    model.Address = "0xadmin"
	TestEscrow   model.Address = "0xescrow"
	TestAdminKey               = "test-admin-key"
	TestEntryFee model.Amount  = 50
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MemLedger *memledger.Ledger
	Events    *testutil.Recorder
}

// NewTestApp creates an App over in-memory backends with a mocked clock
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	token := memledger.New()
	recorder := testutil.NewRecorder()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestAdminKey), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	cfg := Config{
		Admin:      TestAdmin,
		Escrow:     TestEscrow,
		EntryFee:   TestEntryFee,
		AuthConfig: auth.Config{AdminKeyHash: string(hash), SessionDuration: time.Hour},
		Settlement: settlement.Config{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}
	deps := &dependencies{
		store:     memstorage.New(),
		token:     token,
		clock:     mockClock,
		publisher: recorder,
		metrics:   telemetry.NewMetrics(noop.NewMeterProvider()),
	}

	app, err := newWithDependencies(cfg, testutil.NopLogger(), deps)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MemLedger: token,
		Events:    recorder,
	}
}

// Fund mints tokens to an account and approves the escrow to pull them
func (t *TestApp) Fund(ctx context.Context, addr model.Address, amount model.Amount) error {
	if err := t.MemLedger.Mint(ctx, addr, amount); err != nil {
		return err
	}
	return t.MemLedger.Approve(ctx, addr, TestEscrow, amount)
}

// Balance returns an account's ledger balance, zero on error
func (t *TestApp) Balance(ctx context.Context, addr model.Address) model.Amount {
	balance, _ := t.MemLedger.BalanceOf(ctx, addr)
	return balance
}
