// Package memory provides an in-process token ledger for development and tests.
package memory

import (
	"context"
	"math/bits"
	"sync"

	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/model"
)

// TransferHook observes a completed transfer. It runs after the ledger lock is
// released, with the context of the call that made the transfer, so it may call
// back into whoever initiated the transfer.
type TransferHook func(ctx context.Context, from, to model.Address, amount model.Amount)

// Ledger is an in-memory implementation of the token ledger
type Ledger struct {
	mu sync.RWMutex

	balances   map[model.Address]model.Amount
	allowances map[allowanceKey]model.Amount

	hook TransferHook
	fail map[model.Address]error
}

type allowanceKey struct {
	owner   model.Address
	spender model.Address
}

// New creates a new in-memory ledger
func New() *Ledger {
	return &Ledger{
		balances:   make(map[model.Address]model.Amount),
		allowances: make(map[allowanceKey]model.Amount),
		fail:       make(map[model.Address]error),
	}
}

var (
	_ ledger.Token  = (*Ledger)(nil)
	_ ledger.Minter = (*Ledger)(nil)
)

// OnTransfer installs a hook called after every successful transfer
func (l *Ledger) OnTransfer(hook TransferHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = hook
}

// RejectTransfersTo makes every transfer to the recipient fail with err.
// A nil err clears the rejection.
func (l *Ledger) RejectTransfersTo(to model.Address, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, to)
		return
	}
	l.fail[to] = err
}

func (l *Ledger) BalanceOf(ctx context.Context, owner model.Address) (model.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[owner], nil
}

func (l *Ledger) Allowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{owner, spender}], nil
}

func (l *Ledger) Approve(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return model.ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

func (l *Ledger) Mint(ctx context.Context, to model.Address, amount model.Amount) error {
	if to.IsZero() {
		return model.ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, carry := bits.Add64(uint64(l.balances[to]), uint64(amount), 0)
	if carry != 0 {
		return model.ErrAmountOverflow
	}
	l.balances[to] = model.Amount(sum)
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to model.Address, amount model.Amount) error {
	l.mu.Lock()
	if err := l.move(from, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	hook := l.hook
	l.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to model.Address, amount model.Amount) error {
	l.mu.Lock()
	key := allowanceKey{from, spender}
	if l.allowances[key] < amount {
		l.mu.Unlock()
		return model.ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	l.allowances[key] -= amount
	hook := l.hook
	l.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

// move must be called with the lock held
func (l *Ledger) move(from, to model.Address, amount model.Amount) error {
	if from.IsZero() || to.IsZero() {
		return model.ErrZeroAddress
	}
	if err := l.fail[to]; err != nil {
		return err
	}
	if l.balances[from] < amount {
		return model.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	if _, carry := bits.Add64(uint64(l.balances[to]), uint64(amount), 0); carry != 0 {
		return model.ErrAmountOverflow
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
