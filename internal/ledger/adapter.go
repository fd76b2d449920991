package ledger

import (
	"context"
	"fmt"

	"github.com/mcoot/triviapool/internal/model"
)

// Adapter moves funds between participants and the escrow account
type Adapter struct {
	token  Token
	escrow model.Address
}

// New binds a token ledger to the escrow account
func New(token Token, escrow model.Address) (*Adapter, error) {
	if token == nil {
		return nil, fmt.Errorf("token ledger: %w", model.ErrZeroAddress)
	}
	if escrow.IsZero() {
		return nil, fmt.Errorf("escrow account: %w", model.ErrZeroAddress)
	}
	return &Adapter{token: token, escrow: escrow}, nil
}

// Escrow returns the account holding session pools
func (a *Adapter) Escrow() model.Address {
	return a.escrow
}

// Token returns the underlying ledger
func (a *Adapter) Token() Token {
	return a.token
}

// AllowanceOf returns how much the owner has authorized the escrow to pull
func (a *Adapter) AllowanceOf(ctx context.Context, owner model.Address) (model.Amount, error) {
	return a.token.Allowance(ctx, owner, a.escrow)
}

// Pull moves funds from an authorizing owner into escrow
func (a *Adapter) Pull(ctx context.Context, from model.Address, amount model.Amount) error {
	if from == a.escrow {
		return fmt.Errorf("pull %s from %s: %w", amount, from, model.ErrEscrowParticipant)
	}
	if err := a.token.TransferFrom(ctx, a.escrow, from, a.escrow, amount); err != nil {
		return fmt.Errorf("pull %s from %s: %w", amount, from, err)
	}
	return nil
}

// Push moves funds out of escrow
func (a *Adapter) Push(ctx context.Context, to model.Address, amount model.Amount) error {
	if err := a.token.Transfer(ctx, a.escrow, to, amount); err != nil {
		return fmt.Errorf("push %s to %s: %w", amount, to, err)
	}
	return nil
}

// EscrowBalance returns the escrow account's ledger balance
func (a *Adapter) EscrowBalance(ctx context.Context) (model.Amount, error) {
	return a.token.BalanceOf(ctx, a.escrow)
}
