// Package workerpool provides a bounded concurrent job submitter shared by
// every topic's recovery and snapshot work, so that one topic's replay
// never starves or blocks another's (spec §5).
package workerpool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent background work with a weighted semaphore rather
// than an errgroup: errgroup.WithContext cancels every in-flight job the
// moment one returns an error, which is the wrong policy here — one
// topic's failed replay must not abort another topic's snapshot. A
// semaphore gate with independently-erroring jobs has no such coupling.
type Pool struct {
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// New creates a pool that runs at most maxConcurrent jobs at a time.
func New(maxConcurrent int64, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
	}
}

// Submit blocks until a slot is free (or ctx is done), then runs fn in its
// own goroutine. Each job gets a uuid for log correlation; a job's own
// failure is only ever visible through its own return value or side
// effects — Submit does not propagate it to other callers.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("workerpool: acquire slot: %w", err)
	}

	jobID := uuid.New().String()
	go func() {
		defer p.sem.Release(1)

		if err := fn(ctx); err != nil {
			p.logger.Warn("worker pool job failed",
				zap.String("job_id", jobID),
				zap.Error(err))
		}
	}()
	return nil
}

// TryAcquire reports whether a slot is currently free, without blocking.
// For callers that would rather skip work than wait for a slot; nothing
// else in this module calls it.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release gives back a slot acquired via TryAcquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}
