package call

import (
	"context"
	"sync"
)

// Pair holds the values of two zipped Calls.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Map returns a Call that applies fn to the value of c.
func Map[T, R any](c Call[T], fn func(T) R) Call[R] {
	return New(func(ctx context.Context) Result[R] {
		res := c.Await(ctx)
		if res.IsFailure() {
			return Failure[R](res.Err())
		}
		return Success(fn(res.Value()))
	}, WithExecutor(executorOf(c)))
}

// FlatMap returns a Call that chains the Call produced by fn after c succeeds.
func FlatMap[T, R any](c Call[T], fn func(T) Call[R]) Call[R] {
	return New(func(ctx context.Context) Result[R] {
		res := c.Await(ctx)
		if res.IsFailure() {
			return Failure[R](res.Err())
		}
		return fn(res.Value()).Await(ctx)
	}, WithExecutor(executorOf(c)))
}

// DoOnStart returns a Call that invokes fn right before c is launched.
func DoOnStart[T any](c Call[T], fn func(ctx context.Context)) Call[T] {
	return New(func(ctx context.Context) Result[T] {
		fn(ctx)
		return c.Await(ctx)
	}, WithExecutor(executorOf(c)))
}

// DoOnResult returns a Call that invokes fn with the Result of c before handing it on.
func DoOnResult[T any](c Call[T], fn func(ctx context.Context, res Result[T])) Call[T] {
	return New(func(ctx context.Context) Result[T] {
		res := c.Await(ctx)
		fn(ctx, res)
		return res
	}, WithExecutor(executorOf(c)))
}

// WithPrecondition returns a Call that launches c only when check returns nil.
// Otherwise it fails with the error of check and c is never launched.
func WithPrecondition[T any](c Call[T], check func(ctx context.Context) error) Call[T] {
	return New(func(ctx context.Context) Result[T] {
		if err := check(ctx); err != nil {
			c.Cancel()
			return Failure[T](err)
		}
		return c.Await(ctx)
	}, WithExecutor(executorOf(c)))
}

// Zip returns a Call that runs a and b concurrently and succeeds with both values.
// The first failure cancels the other Call.
func Zip[A, B any](a Call[A], b Call[B]) Call[Pair[A, B]] {
	return New(func(ctx context.Context) Result[Pair[A, B]] {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			wg   sync.WaitGroup
			resA Result[A]
			resB Result[B]
		)

		wg.Add(2)
		go func() {
			defer wg.Done()
			resA = a.Await(ctx)
			if resA.IsFailure() {
				cancel()
			}
		}()
		go func() {
			defer wg.Done()
			resB = b.Await(ctx)
			if resB.IsFailure() {
				cancel()
			}
		}()
		wg.Wait()

		// Report the root failure rather than the cancellation it caused.
		switch {
		case resA.IsFailure() && !resA.IsCancelled():
			return Failure[Pair[A, B]](resA.Err())
		case resB.IsFailure() && !resB.IsCancelled():
			return Failure[Pair[A, B]](resB.Err())
		case resA.IsFailure():
			return Failure[Pair[A, B]](resA.Err())
		case resB.IsFailure():
			return Failure[Pair[A, B]](resB.Err())
		}

		return Success(Pair[A, B]{First: resA.Value(), Second: resB.Value()})
	}, WithExecutor(executorOf(a)))
}
