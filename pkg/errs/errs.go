/*
Package errs provides the error taxonomy of the chat client and the backend error code constants.

This file defines the Error struct, which implements the standard Go error interface and carries
the error kind, a business code, the human-readable message and, for network failures, the HTTP
status and the underlying cause.
*/
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatsdk/internal/pkg/logx"
)

// Kind classifies an Error.
type Kind int

const (
	// KindGeneric is a plugin veto or a business-rule rejection.
	KindGeneric Kind = iota

	// KindValidation is bad caller input, e.g. a user/token mismatch.
	KindValidation

	// KindNetwork wraps a transport or backend failure.
	KindNetwork

	// KindTimeout is an exceeded connect deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

var (
	// ErrCancelled signals that the caller gave up on a Call. It is not an error kind:
	// callers use IsCancellation to tell "I gave up" from "the server said no".
	ErrCancelled = errors.New("call was cancelled")

	// ErrIllegalState is returned when a Call is launched more than once.
	ErrIllegalState = errors.New("illegal state: call has already been launched")
)

// Error is the error structure every client operation fails with.
type Error struct {
	// Kind is the taxonomy bucket of the error.
	Kind Kind

	// Code is the backend or client error code (see constants definition). Zero when not applicable.
	Code int

	// Message is the human-readable description. It is part of the contract for several
	// client failures and is returned verbatim by Error().
	Message string

	// StatusCode is the HTTP status reported by the backend, zero for non-HTTP failures.
	StatusCode int

	// Cause is the underlying collaborator error, if any.
	Cause error
}

// Error implements the standard Go error interface and returns the message verbatim.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// String returns a diagnostic representation including kind, code and status.
func (e *Error) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error", e.Kind)
	if e.Code != 0 {
		fmt.Fprintf(&b, " code=%d", e.Code)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

// Generic builds a KindGeneric error with the given message.
func Generic(message string) *Error {
	return &Error{Kind: KindGeneric, Message: message}
}

// Genericf builds a KindGeneric error with a formatted message.
func Genericf(format string, args ...any) *Error {
	return &Error{Kind: KindGeneric, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error with the given message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Timeout builds a KindTimeout error with the given message.
func Timeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// Network builds a KindNetwork error from a backend failure.
func Network(code, statusCode int, message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Code: code, Message: message, StatusCode: statusCode, Cause: cause}
}

// NewError constructs a new *Error from a predefined error code.
// The optional details parameter supplies printf-style arguments for the message template;
// an error among the details becomes the Cause. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *Error {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	for _, d := range details {
		if cause, ok := d.(error); ok {
			customErr.Cause = cause
			break
		}
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else if customErr.Cause == nil {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// CodeOf returns the error code carried by err, or zero.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCancellation reports whether err signals a caller-initiated cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
