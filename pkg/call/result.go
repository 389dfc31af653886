package call

import "chatsdk/pkg/errs"

// Result is the outcome of a Call: either a value or an error.
type Result[T any] struct {
	value T
	err   error
}

// Success wraps v in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps err in a failed Result. A nil err is replaced by an unknown error
// so that a failed Result always carries a cause.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = errs.NewError(errs.ErrUnknown)
	}
	return Result[T]{err: err}
}

// IsSuccess reports whether the Result carries a value.
func (r Result[T]) IsSuccess() bool { return r.err == nil }

// IsFailure reports whether the Result carries an error.
func (r Result[T]) IsFailure() bool { return r.err != nil }

// IsCancelled reports whether the Result signals a cancellation rather than an error.
func (r Result[T]) IsCancelled() bool { return r.err != nil && errs.IsCancellation(r.err) }

// Get returns the value and the error.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// Err returns the error, nil on success.
func (r Result[T]) Err() error { return r.err }

// Value returns the value, the zero value on failure.
func (r Result[T]) Value() T { return r.value }
