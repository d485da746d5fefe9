package execution

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs background executions with a bounded number of concurrent workers
type Pool struct {
	sem *semaphore.Weighted
}

var sharedPool = NewPool(int64(max(4, runtime.NumCPU()*2)))

// NewPool returns a pool running at most size tasks at once
func NewPool(size int64) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(size)}
}

// SharedPool returns the process wide pool used when none is configured
func SharedPool() *Pool {
	return sharedPool
}

// Go schedules task without blocking the caller.
// When ctx is done before a worker is free the task is called with the context error.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context, err error)) {
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			task(ctx, err)
			return
		}
		defer p.sem.Release(1)
		task(ctx, nil)
	}()
}
