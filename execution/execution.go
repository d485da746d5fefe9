package execution

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/logger"
)

// Work is the deferred unit of an execution, it must return promptly once ctx is done
type Work[T any] func(ctx context.Context) (T, error)

// Options configure an execution
type Options struct {
	Abort  func()
	Pool   *Pool
	Logger logrus.FieldLogger
}

// Option is a function that modifies Options
type Option func(*Options)

// WithAbort sets an extra function invoked on abort, e.g. closing a connection
func WithAbort(abort func()) Option {
	return func(o *Options) {
		o.Abort = abort
	}
}

// WithPool sets the pool used by ExecuteAsync
func WithPool(pool *Pool) Option {
	return func(o *Options) {
		o.Pool = pool
	}
}

// WithLogger sets the logger of the execution
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// Execution is a deferred, abortable unit of work with completion handlers.
// Handlers fire in registration order before Execute returns or the Future resolves.
// An aborted execution fires no success or error handler, finally handlers still run.
type Execution[T any] struct {
	id      string
	work    Work[T]
	options Options
	log     logrus.FieldLogger

	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool

	mu        sync.Mutex
	onSuccess []func(T)
	onError   []func(error)
	onFinally []func(Result[T])
}

// New returns an execution of work, nothing runs until Execute or ExecuteAsync
func New[T any](work Work[T], opts ...Option) *Execution[T] {
	options := Options{Pool: SharedPool()}
	for _, opt := range opts {
		opt(&options)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Execution[T]{
		id:      id,
		work:    work,
		options: options,
		log:     logger.OrNew(options.Logger, "execution").WithField("execution_id", id),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ID identifies the execution in logs
func (e *Execution[T]) ID() string {
	return e.id
}

// OnSuccess registers a handler receiving the value of a successful run
func (e *Execution[T]) OnSuccess(handler func(T)) *Execution[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSuccess = append(e.onSuccess, handler)
	return e
}

// OnError registers a handler receiving the error of a failed run
func (e *Execution[T]) OnError(handler func(error)) *Execution[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = append(e.onError, handler)
	return e
}

// OnFinally registers a handler that runs after every run, aborted ones included
func (e *Execution[T]) OnFinally(handler func(Result[T])) *Execution[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinally = append(e.onFinally, handler)
	return e
}

// Execute runs the work on the calling goroutine and fires the handlers.
// Panics raised by handlers are logged and swallowed.
func (e *Execution[T]) Execute(ctx context.Context) Result[T] {
	value, err := e.run(ctx)
	result := newResult(value, err, e.IsAborted() || errors.Is(err, ErrAborted))
	e.fire(result)
	return result
}

// ExecuteAsync schedules Execute on the pool of the execution
func (e *Execution[T]) ExecuteAsync(ctx context.Context) *Future[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	future := newFuture[T]()
	e.options.Pool.Go(ctx, func(ctx context.Context, err error) {
		if err != nil {
			result := newResult[T](*new(T), errors.Wrap(err, "execution not scheduled"), e.IsAborted())
			e.fire(result)
			future.complete(result)
			return
		}
		future.complete(e.Execute(ctx))
	})
	return future
}

// Abort cancels the work and calls the abort function.
// It is safe to call at any time and more than once, failures are swallowed.
func (e *Execution[T]) Abort() {
	if e.aborted.Swap(true) {
		return
	}
	e.log.Debug("aborting execution")
	e.cancel()

	if e.options.Abort == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Debug("abort function panicked")
		}
	}()
	e.options.Abort()
}

// IsAborted reports whether Abort was called
func (e *Execution[T]) IsAborted() bool {
	return e.aborted.Load()
}

// run invokes the work with a context that is also cancelled on Abort, no handler fires
func (e *Execution[T]) run(ctx context.Context) (T, error) {
	var zero T
	if e.IsAborted() {
		return zero, ErrAborted
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	value, err := e.work(ctx)
	if e.IsAborted() {
		return zero, ErrAborted
	}
	return value, err
}

func (e *Execution[T]) fire(result Result[T]) {
	e.mu.Lock()
	onSuccess := append([]func(T){}, e.onSuccess...)
	onError := append([]func(error){}, e.onError...)
	onFinally := append([]func(Result[T]){}, e.onFinally...)
	e.mu.Unlock()

	switch result.Status {
	case Succeeded:
		for _, handler := range onSuccess {
			e.safely(func() { handler(result.Value) })
		}
	case Failed:
		e.log.WithError(result.Err).Debug("execution failed")
		for _, handler := range onError {
			e.safely(func() { handler(result.Err) })
		}
	case Aborted:
		e.log.Debug("execution aborted")
	}

	for _, handler := range onFinally {
		e.safely(func() { handler(result) })
	}
}

func (e *Execution[T]) safely(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Warn("execution handler panicked")
		}
	}()
	handler()
}
