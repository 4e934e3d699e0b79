// Package errors provides error handling for tpu.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for operators
//
// On top of that it defines the failure taxonomy shared by the engine client,
// the RDF projector and the workflow:
//
//	// Wrap with a sentinel so callers can classify
//	return errors.Wrapf(errors.ErrPreconditionFailed, "resource %q", id)
//
//	// Classify at the workflow boundary
//	category := errors.Category(err) // "PreconditionFailed"
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"context"
	"io/fs"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors for the batch workflow.
// Use these with errors.Is() and wrap them with errors.Wrap() to add context.
var (
	// ErrNotFound indicates an expected engine entity or field is absent
	ErrNotFound = New("not found")

	// ErrPreconditionFailed indicates an operation needed an identifier that was never resolved
	ErrPreconditionFailed = New("precondition failed")

	// ErrMalformedResponse indicates an engine response lacks an expected field or has the wrong type
	ErrMalformedResponse = New("malformed response")

	// ErrRemoteCall indicates the engine answered with a non-success HTTP status
	ErrRemoteCall = New("remote call failed")

	// ErrTaskExecution indicates the engine rejected or failed a task execution
	ErrTaskExecution = New("task execution failed")

	// ErrTimeout indicates a per-call timeout or the workflow deadline expired
	ErrTimeout = New("operation timed out")

	// ErrInvalidRequest indicates the caller supplied unusable input
	ErrInvalidRequest = New("invalid request")
)

// Failure categories reported in workflow results.
const (
	CategoryRemoteCallFailed    = "RemoteCallFailed"
	CategoryPreconditionFailed  = "PreconditionFailed"
	CategoryNotFound            = "NotFound"
	CategoryMalformedResponse   = "MalformedResponse"
	CategoryTaskExecutionFailed = "TaskExecutionFailed"
	CategoryTimeout             = "Timeout"
	CategoryCanceled            = "Canceled"
	CategoryInvalidRequest      = "InvalidRequest"
	CategoryIOError             = "IOError"
	CategoryUnknown             = "Unknown"
)

// Category names the failure class of err, most specific first.
// Returns "" for a nil error.
func Category(err error) string {
	if err == nil {
		return ""
	}

	// Deadlines win: a timed out task call is reported as a timeout, not as the call that was cut short
	if IsTimeoutError(err) {
		return CategoryTimeout
	}
	if Is(err, context.Canceled) {
		return CategoryCanceled
	}

	switch {
	case Is(err, ErrTaskExecution):
		return CategoryTaskExecutionFailed
	case Is(err, ErrRemoteCall):
		return CategoryRemoteCallFailed
	case Is(err, ErrPreconditionFailed):
		return CategoryPreconditionFailed
	case Is(err, ErrNotFound):
		return CategoryNotFound
	case Is(err, ErrMalformedResponse):
		return CategoryMalformedResponse
	case Is(err, ErrInvalidRequest):
		return CategoryInvalidRequest
	}

	var pathErr *fs.PathError
	if As(err, &pathErr) {
		return CategoryIOError
	}

	return CategoryUnknown
}

// IsTimeoutError checks if an error is or wraps ErrTimeout, a context deadline,
// or a network error reporting Timeout().
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if IsAny(err, ErrTimeout, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return As(err, &netErr) && netErr.Timeout()
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewMalformedResponseError creates a malformed-response error with a formatted message
func NewMalformedResponseError(format string, args ...interface{}) error {
	return Wrap(ErrMalformedResponse, Newf(format, args...).Error())
}

// NewPreconditionError creates a precondition-failed error with a formatted message
func NewPreconditionError(format string, args ...interface{}) error {
	return Wrap(ErrPreconditionFailed, Newf(format, args...).Error())
}
