// Package redis provides a Redis-backed token ledger.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/model"
)

// maxTxRetries bounds optimistic transaction retries under contention
const maxTxRetries = 64

// Ledger keeps balances and allowances in Redis hashes. Every mutation runs
// as a WATCH/MULTI transaction so concurrent writers never lose an update.
type Ledger struct {
	client *redis.Client
}

// New creates a ledger on an existing client
func New(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

var (
	_ ledger.Token  = (*Ledger)(nil)
	_ ledger.Minter = (*Ledger)(nil)
)

func (l *Ledger) BalanceOf(ctx context.Context, owner model.Address) (model.Amount, error) {
	return readAmount(ctx, l.client, balancesKey(), string(owner))
}

func (l *Ledger) Allowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	return readAmount(ctx, l.client, allowancesKey(), allowanceField(owner, spender))
}

func (l *Ledger) Approve(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return model.ErrZeroAddress
	}
	return l.client.HSet(ctx, allowancesKey(), allowanceField(owner, spender), amount.String()).Err()
}

func (l *Ledger) Mint(ctx context.Context, to model.Address, amount model.Amount) error {
	if to.IsZero() {
		return model.ErrZeroAddress
	}
	return l.transact(ctx, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		bal, err := readAmount(ctx, tx, balancesKey(), string(to))
		if err != nil {
			return nil, err
		}
		sum, carry := bits.Add64(uint64(bal), uint64(amount), 0)
		if carry != 0 {
			return nil, model.ErrAmountOverflow
		}
		return func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, balancesKey(), string(to), model.Amount(sum).String())
		}, nil
	}, balancesKey())
}

func (l *Ledger) Transfer(ctx context.Context, from, to model.Address, amount model.Amount) error {
	if from.IsZero() || to.IsZero() {
		return model.ErrZeroAddress
	}
	return l.transact(ctx, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		return plan(ctx, tx, from, to, amount)
	}, balancesKey())
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to model.Address, amount model.Amount) error {
	if from.IsZero() || to.IsZero() {
		return model.ErrZeroAddress
	}
	field := allowanceField(from, spender)
	return l.transact(ctx, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		allowance, err := readAmount(ctx, tx, allowancesKey(), field)
		if err != nil {
			return nil, err
		}
		if allowance < amount {
			return nil, model.ErrInsufficientAllowance
		}
		write, err := plan(ctx, tx, from, to, amount)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			write(pipe)
			pipe.HSet(ctx, allowancesKey(), field, (allowance - amount).String())
		}, nil
	}, balancesKey(), allowancesKey())
}

// plan validates a balance move and returns the writes that apply it
func plan(ctx context.Context, tx *redis.Tx, from, to model.Address, amount model.Amount) (func(redis.Pipeliner), error) {
	fromBal, err := readAmount(ctx, tx, balancesKey(), string(from))
	if err != nil {
		return nil, err
	}
	if fromBal < amount {
		return nil, model.ErrInsufficientBalance
	}
	if from == to {
		return func(redis.Pipeliner) {}, nil
	}
	toBal, err := readAmount(ctx, tx, balancesKey(), string(to))
	if err != nil {
		return nil, err
	}
	sum, carry := bits.Add64(uint64(toBal), uint64(amount), 0)
	if carry != 0 {
		return nil, model.ErrAmountOverflow
	}
	return func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, balancesKey(),
			string(from), (fromBal - amount).String(),
			string(to), model.Amount(sum).String(),
		)
	}, nil
}

// transact runs check under WATCH and applies the returned writes atomically,
// retrying when another client modified a watched key in between.
func (l *Ledger) transact(ctx context.Context, check func(tx *redis.Tx) (func(redis.Pipeliner), error), keys ...string) error {
	for range maxTxRetries {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			write, err := check(tx)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				write(pipe)
				return nil
			})
			return err
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("ledger transaction: too much contention on %v", keys)
}

type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func readAmount(ctx context.Context, c hashReader, key, field string) (model.Amount, error) {
	raw, err := c.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt amount at %s[%s]: %w", key, field, err)
	}
	return model.Amount(v), nil
}
