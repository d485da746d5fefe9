package execution

import (
	"github.com/pkg/errors"
)

// ErrAborted is the error of an execution that was aborted before it completed
var ErrAborted = errors.New("execution aborted")

// Status is the terminal state of an execution
type Status int

const (
	Succeeded Status = iota + 1
	Failed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "pending"
	}
}

// Result is the outcome of one run of an execution
type Result[T any] struct {
	Value  T
	Err    error
	Status Status
}

// IsSuccess reports whether the work completed without error
func (r Result[T]) IsSuccess() bool {
	return r.Status == Succeeded
}

// IsAborted reports whether the execution was aborted
func (r Result[T]) IsAborted() bool {
	return r.Status == Aborted
}

// Get returns the value and error, the error is ErrAborted for aborted results
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

func newResult[T any](value T, err error, aborted bool) Result[T] {
	switch {
	case aborted:
		var zero T
		return Result[T]{Value: zero, Err: ErrAborted, Status: Aborted}
	case err != nil:
		var zero T
		return Result[T]{Value: zero, Err: err, Status: Failed}
	default:
		return Result[T]{Value: value, Status: Succeeded}
	}
}
