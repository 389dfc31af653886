/*
Package call provides the uniform asynchronous operation returned by every client method.

A Call is a one-shot unit of work. It can be launched exactly once, in one of three ways:
Execute blocks the calling goroutine, Await waits cooperatively under a context, and Enqueue
runs the work on a bounded Executor and hands the Result to a callback. Cancellation is
delivered as errs.ErrCancelled and is never confused with an error kind.
*/
package call

import (
	"context"
	"fmt"
	"sync"

	"chatsdk/pkg/errs"
)

// State is the lifecycle state of a Call.
type State int

const (
	// StateCreated is a Call that has not been launched.
	StateCreated State = iota

	// StateRunning is a launched Call whose work has not finished.
	StateRunning

	// StateCompleted is a Call whose work produced a Result.
	StateCompleted

	// StateCancelled is a Call cancelled before its work finished.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Work is the body of a Call. It should return promptly once ctx is done.
type Work[T any] func(ctx context.Context) Result[T]

// Call is a one-shot asynchronous operation producing a Result[T].
type Call[T any] interface {
	// Execute launches the work and blocks until it completes. When called from an
	// Enqueue callback it occupies that worker slot until the work is done.
	Execute() Result[T]

	// Await launches the work and waits for it. Cancelling ctx cancels the Call and
	// returns a cancellation Result.
	Await(ctx context.Context) Result[T]

	// Enqueue launches the work on the executor and invokes cb exactly once with the
	// Result, on a worker goroutine.
	Enqueue(cb func(Result[T]))

	// Cancel moves a created or running Call to the cancelled state. It is a no-op once
	// the Call has completed.
	Cancel()

	// State returns the current lifecycle state.
	State() State
}

// Option configures a Call.
type Option func(*options)

type options struct {
	executor *Executor
}

// WithExecutor runs enqueued work of the Call on e instead of the shared executor.
func WithExecutor(e *Executor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// task is the single execution core behind the three launch adapters.
type task[T any] struct {
	work     Work[T]
	executor *Executor

	// mu guards every field below.
	mu       sync.Mutex
	state    State
	launched bool
	cancel   context.CancelFunc
	result   Result[T]

	// done is closed once result is final.
	done chan struct{}
}

// New creates a Call around work.
func New[T any](work Work[T], opts ...Option) Call[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.executor == nil {
		o.executor = DefaultExecutor()
	}

	return &task[T]{
		work:     work,
		executor: o.executor,
		state:    StateCreated,
		done:     make(chan struct{}),
	}
}

// Error returns a Call that fails with err.
func Error[T any](err error, opts ...Option) Call[T] {
	return New(func(context.Context) Result[T] { return Failure[T](err) }, opts...)
}

// Just returns a Call that succeeds with v.
func Just[T any](v T, opts ...Option) Call[T] {
	return New(func(context.Context) Result[T] { return Success(v) }, opts...)
}

// begin marks the task as launched and returns the context the work must run with.
// A non-nil Result means the work must not run and that Result is the outcome.
func (t *task[T]) begin(parent context.Context) (context.Context, *Result[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.launched {
		res := Failure[T](errs.ErrIllegalState)
		return nil, &res
	}
	t.launched = true

	if t.state == StateCancelled {
		res := t.result
		return nil, &res
	}

	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.state = StateRunning

	return ctx, nil
}

// run executes the work and publishes its Result unless the task was cancelled meanwhile.
func (t *task[T]) run(ctx context.Context) {
	if ctx.Err() != nil {
		t.finish(Failure[T](errs.ErrCancelled))
		return
	}

	t.finish(t.safeWork(ctx))
}

func (t *task[T]) safeWork(ctx context.Context) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure[T](errs.Genericf("call panicked: %v", r))
		}
	}()

	return t.work(ctx)
}

func (t *task[T]) finish(res Result[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return
	}

	t.state = StateCompleted
	t.result = res
	t.cancel()
	close(t.done)
}

// outcome returns the final Result. It must only be called once done is closed.
func (t *task[T]) outcome() Result[T] {
	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *task[T]) Execute() Result[T] {
	return t.Await(context.Background())
}

func (t *task[T]) Await(ctx context.Context) Result[T] {
	runCtx, early := t.begin(context.WithoutCancel(ctx))
	if early != nil {
		return *early
	}

	go t.run(runCtx)

	select {
	case <-t.done:
	case <-ctx.Done():
		t.Cancel()
	}

	return t.outcome()
}

func (t *task[T]) Enqueue(cb func(Result[T])) {
	if cb == nil {
		cb = func(Result[T]) {}
	}

	runCtx, early := t.begin(context.Background())
	if early != nil {
		res := *early
		t.executor.Submit(func() { cb(res) })
		return
	}

	t.executor.Submit(func() {
		t.run(runCtx)
		cb(t.outcome())
	})
}

func (t *task[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateCreated:
		t.state = StateCancelled
		t.result = Failure[T](errs.ErrCancelled)
		close(t.done)
	case StateRunning:
		t.state = StateCancelled
		t.result = Failure[T](errs.ErrCancelled)
		t.cancel()
		close(t.done)
	}
}

func (t *task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *task[T]) String() string {
	return fmt.Sprintf("Call[%T](%s)", *new(T), t.State())
}

// executorOf returns the executor of c, or the shared one for foreign Call implementations.
func executorOf[T any](c Call[T]) *Executor {
	if t, ok := c.(*task[T]); ok {
		return t.executor
	}
	return DefaultExecutor()
}
