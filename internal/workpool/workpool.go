// Package workpool runs independent per-instrument jobs on a bounded set of
// goroutines.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Size resolves the pool size: the requested worker count (NumCPU when <= 0),
// capped by the number of jobs.
func Size(workers, jobs int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if jobs < workers {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Run calls fn for every index in [0, jobs). The first error cancels the
// context handed to the remaining jobs and is returned.
func Run(ctx context.Context, workers, jobs int, fn func(ctx context.Context, i int) error) error {
	if jobs == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Size(workers, jobs))

	for i := 0; i < jobs; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
