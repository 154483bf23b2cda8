// Package runner provides the bounded worker pool that hosts workflow runs:
// one job per run, each with a hard deadline so a stuck run cannot pin a
// worker forever.
package runner

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
)

// DefaultRunTimeout is the hard upper bound for a single run.
const DefaultRunTimeout = 300 * time.Second

// Pool runs submitted jobs on a fixed number of workers.
type Pool struct {
	pool    *ants.Pool
	timeout time.Duration
}

// New creates a pool with the given worker count and per-job timeout. A
// non-positive timeout falls back to DefaultRunTimeout.
func New(size int, timeout time.Duration) (*Pool, error) {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	p, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, timeout: timeout}, nil
}

// Submit schedules a job. The job's context is cancelled when the timeout
// elapses; submission fails when every worker is busy.
func (p *Pool) Submit(job func(ctx context.Context)) error {
	return p.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		job(ctx)
	})
}

// Release stops the pool's workers.
func (p *Pool) Release() {
	p.pool.Release()
}
