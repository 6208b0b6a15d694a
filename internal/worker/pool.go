package worker

import (
	"context"

	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task processes item i of a batch
type Task func(ctx context.Context, i int) error

// Pool runs batches of tasks on a bounded number of goroutines
type Pool struct {
	size   int
	logger *zap.Logger
}

// NewPool creates a new worker pool. Sizes below one are treated as one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		logger: util.GetLogger(),
	}
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Run calls task for every i in [0, n). A pool of one runs the tasks inline
// in index order; larger pools give no ordering. The first error cancels
// the remaining tasks and is returned.
func (p *Pool) Run(ctx context.Context, n int, task Task) error {
	if p.size == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	p.logger.Debug("Starting worker pool", zap.Int("workers", p.size), zap.Int("tasks", n))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i // per-iteration copy; go directive is 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			return task(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
