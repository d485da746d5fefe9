package execution

import (
	"context"
)

// Future is the handle of an execution scheduled on a pool
type Future[T any] struct {
	done   chan struct{}
	result Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(result Result[T]) {
	f.result = result
	close(f.done)
}

// Done is closed once all handlers of the execution have run
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the execution resolves
func (f *Future[T]) Wait() Result[T] {
	<-f.done
	return f.result
}

// Get blocks until the execution resolves or ctx is done
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Get()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
