// Package workpool runs independent tasks with a cap on how many are in
// flight at once.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run calls fn for each index in [0, n) with at most limit calls running
// concurrently. Remaining tasks queue and start as capacity frees. Task
// failures are the task's own business: fn reports them through its own
// state, so one task never stops the others. Run returns ctx's error if ctx
// ended before every task started.
func Run(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) error {
	if limit < 1 {
		limit = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		i := i
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	return g.Wait()
}
