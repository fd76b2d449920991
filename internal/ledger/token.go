// Package ledger binds the escrow to an external fungible-token ledger.
package ledger

import (
	"context"

	"github.com/mcoot/triviapool/internal/model"
)

// Token is the fungible-token ledger the escrow settles against.
// Failures are reported as model.ErrInsufficientBalance,
// model.ErrInsufficientAllowance or model.ErrZeroAddress where they apply.
//
// An implementation that runs callbacks during Transfer or TransferFrom, such
// as recipient hooks, must hand those callbacks the ctx it was given. The ctx
// marks the session operation in progress, and a callback that re-enters the
// session controller with any other ctx blocks on the controller lock for good.
type Token interface {
	BalanceOf(ctx context.Context, owner model.Address) (model.Amount, error)
	Allowance(ctx context.Context, owner, spender model.Address) (model.Amount, error)
	Approve(ctx context.Context, owner, spender model.Address, amount model.Amount) error
	Transfer(ctx context.Context, from, to model.Address, amount model.Amount) error
	TransferFrom(ctx context.Context, spender, from, to model.Address, amount model.Amount) error
}

// Minter is implemented by ledgers that can issue new units, used to fund
// accounts in development and tests.
type Minter interface {
	Mint(ctx context.Context, to model.Address, amount model.Amount) error
}
