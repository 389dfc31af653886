package plugin

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

// Operation describes one plugin-gated backend operation.
type Operation[T any] struct {
	// Name identifies the operation in logs.
	Name string

	// Precondition runs the precondition hook of p. A non-nil error vetoes the operation.
	Precondition func(ctx context.Context, p Plugin) error

	// Request runs the request hook of p.
	Request func(ctx context.Context, p Plugin)

	// Result runs the result hook of p with the final Result.
	Result func(ctx context.Context, p Plugin, res call.Result[T])

	// Network produces the backend call. It is invoked only after every precondition passed.
	Network func() call.Call[T]

	// SkipRequest disables the request phase.
	SkipRequest bool
}

// Pipeline holds the ordered plugin list and wraps backend operations with their hooks.
type Pipeline struct {
	// plugins is replaced atomically; dispatch reads it without locks.
	plugins atomic.Pointer[[]Plugin]

	executor *call.Executor
	logger   zerolog.Logger
}

// NewPipeline creates a Pipeline running its calls on executor.
func NewPipeline(executor *call.Executor, plugins ...Plugin) *Pipeline {
	if executor == nil {
		executor = call.DefaultExecutor()
	}

	p := &Pipeline{
		executor: executor,
		logger:   logx.Component("Plugins"),
	}
	p.Set(plugins)
	return p
}

// Plugins returns the current plugin list. Callers must not modify it.
func (p *Pipeline) Plugins() []Plugin {
	return *p.plugins.Load()
}

// Set replaces the plugin list.
func (p *Pipeline) Set(plugins []Plugin) {
	next := make([]Plugin, 0, len(plugins))
	for _, pl := range plugins {
		if pl != nil {
			next = append(next, pl)
		}
	}
	p.plugins.Store(&next)
}

// Executor returns the executor of the calls built by the pipeline.
func (p *Pipeline) Executor() *call.Executor {
	return p.executor
}

// NotifyUserSet invokes OnUserSet on every lifecycle listener.
func (p *Pipeline) NotifyUserSet(user *models.User) {
	for _, pl := range p.Plugins() {
		if l, ok := pl.(UserLifecycleListener); ok {
			p.safely("OnUserSet", pl, func() { l.OnUserSet(user) })
		}
	}
}

// NotifyUserDisconnected invokes OnUserDisconnected on every lifecycle listener.
func (p *Pipeline) NotifyUserDisconnected() {
	for _, pl := range p.Plugins() {
		if l, ok := pl.(UserLifecycleListener); ok {
			p.safely("OnUserDisconnected", pl, func() { l.OnUserDisconnected() })
		}
	}
}

func (p *Pipeline) safely(hook string, pl Plugin, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Err(fmt.Errorf("%v", r)).
				Str("hook", hook).
				Str("plugin", fmt.Sprintf("%T", pl)).
				Msg("Recovered panic in plugin hook")
		}
	}()
	fn()
}

// Dispatch wraps op into a Call running, over the plugins set at dispatch time:
// every precondition in order (the first veto fails the Call with the veto error and the
// network is never called), every request hook, the network call, and every result hook
// with the final Result. Hook panics become generic failures.
func Dispatch[T any](p *Pipeline, op Operation[T]) call.Call[T] {
	plugins := p.Plugins()
	logger := p.logger.With().Str("operation", op.Name).Logger()

	return call.New(func(ctx context.Context) call.Result[T] {
		if op.Precondition != nil {
			for _, pl := range plugins {
				if ctx.Err() != nil {
					return call.Failure[T](errs.ErrCancelled)
				}

				if err := runPrecondition(ctx, op.Precondition, pl); err != nil {
					logger.Debug().
						Str("plugin", fmt.Sprintf("%T", pl)).
						Str("reason", err.Error()).
						Msg("Operation vetoed by plugin")
					return call.Failure[T](err)
				}
			}
		}

		if op.Request != nil && !op.SkipRequest {
			for _, pl := range plugins {
				if ctx.Err() != nil {
					return call.Failure[T](errs.ErrCancelled)
				}

				if err := runHook(func() { op.Request(ctx, pl) }); err != nil {
					logger.Error().Err(err).Str("plugin", fmt.Sprintf("%T", pl)).Msg("Request hook failed")
					return call.Failure[T](err)
				}
			}
		}

		if ctx.Err() != nil {
			return call.Failure[T](errs.ErrCancelled)
		}

		res := runNetwork(ctx, op.Network)

		var hookErr error
		if op.Result != nil {
			for _, pl := range plugins {
				if err := runHook(func() { op.Result(ctx, pl, res) }); err != nil {
					logger.Error().Err(err).Str("plugin", fmt.Sprintf("%T", pl)).Msg("Result hook failed")
					if hookErr == nil {
						hookErr = err
					}
				}
			}
		}

		if hookErr != nil {
			return call.Failure[T](hookErr)
		}

		return res
	}, call.WithExecutor(p.executor))
}

func runPrecondition(ctx context.Context, check func(context.Context, Plugin) error, pl Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Genericf("%v", r)
		}
	}()
	return check(ctx, pl)
}

func runHook(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Genericf("%v", r)
		}
	}()
	fn()
	return nil
}

func runNetwork[T any](ctx context.Context, network func() call.Call[T]) (res call.Result[T]) {
	if network == nil {
		return call.Failure[T](errs.Generic("operation has no network call"))
	}

	defer func() {
		if r := recover(); r != nil {
			res = call.Failure[T](errs.Genericf("%v", r))
		}
	}()

	return network().Await(ctx)
}

// hook runs fn when p implements L.
func hook[L any](p Plugin, fn func(L)) {
	if l, ok := p.(L); ok {
		fn(l)
	}
}

// check runs fn when p implements L and returns its verdict.
func check[L any](p Plugin, fn func(L) error) error {
	if l, ok := p.(L); ok {
		return fn(l)
	}
	return nil
}
