package execution

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pair holds the values of two joined executions
type Pair[A, B any] struct {
	First  A
	Second B
}

// Map returns an execution applying transform to the value of e.
// Running it runs the work of e without firing the handlers of e, aborting it aborts e.
func Map[T, R any](e *Execution[T], transform func(T) (R, error), opts ...Option) *Execution[R] {
	work := func(ctx context.Context) (R, error) {
		value, err := e.run(ctx)
		if err != nil {
			var zero R
			return zero, err
		}
		return transform(value)
	}

	return New(work, append([]Option{WithPool(e.options.Pool), WithAbort(e.Abort)}, opts...)...)
}

// Join returns an execution running first and second concurrently.
// It fails as soon as one leg fails, cancelling the other, and aborting it aborts both legs.
func Join[A, B any](first *Execution[A], second *Execution[B], opts ...Option) *Execution[Pair[A, B]] {
	work := func(ctx context.Context) (Pair[A, B], error) {
		var pair Pair[A, B]
		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			value, err := first.run(ctx)
			pair.First = value
			return err
		})
		group.Go(func() error {
			value, err := second.run(ctx)
			pair.Second = value
			return err
		})
		if err := group.Wait(); err != nil {
			return Pair[A, B]{}, err
		}
		return pair, nil
	}

	abort := func() {
		first.Abort()
		second.Abort()
	}
	return New(work, append([]Option{WithPool(first.options.Pool), WithAbort(abort)}, opts...)...)
}

// FromValue returns an execution that completes with value, useful for optional legs of a Join
func FromValue[T any](value T) *Execution[T] {
	return New(func(context.Context) (T, error) { return value, nil })
}
