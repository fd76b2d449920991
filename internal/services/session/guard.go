package session

import (
	"context"

	"github.com/mcoot/triviapool/internal/model"
)

type guardKey struct{}

// lock serializes mutating operations. The returned context marks the call
// as in progress, and it travels into ledger calls. A ledger callback that
// re-enters the controller with that context is rejected rather than left to
// deadlock on the held lock. Detection relies on the callback passing that
// context along; see ledger.Token.
//
// The returned context ignores the caller's cancellation. Once funds start
// moving, the ledger and storage writes of the call must finish together.
func (c *Controller) lock(ctx context.Context) (context.Context, func(), error) {
	if owner, ok := ctx.Value(guardKey{}).(*Controller); ok && owner == c {
		c.metrics.ReentrantCallsTotal.Add(ctx, 1)
		c.logger.Warn("reentrant call rejected")
		return nil, nil, model.ErrReentrantCall
	}
	c.mu.Lock()
	return context.WithValue(context.WithoutCancel(ctx), guardKey{}, c), c.mu.Unlock, nil
}
