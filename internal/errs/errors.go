// Package errs provides the unified error type used across all of FinSight.
//
// Every subsystem (analyzer, planner, executor, source, filestore, …) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// subsystem-specific packages.
//
// Usage:
//
//	// In the analyzer — wrap a parse failure:
//	return nil, errs.Wrap(errs.ErrKindInvalidInput, "could not analyze file", err)
//
//	// In a handler — check error kind:
//	if errs.IsInvalidInput(err) {
//	    http.Error(w, "could not analyze file", http.StatusBadRequest)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All subsystems map their native errors to one of these kinds, giving
// callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown      ErrKind = iota
	ErrKindInvalidInput         // unreadable/unparseable file, bad arguments
	ErrKindNotFound             // unknown session, table, bucket, or object
	ErrKindAmbiguous            // query plan needs clarification from the user
	ErrKindPlanFailed           // unexpected failure while parsing a question
	ErrKindExecFailed           // query execution failure or degenerate result
	ErrKindUnavailable          // external collaborator unreachable or over quota
	ErrKindTimeout              // context deadline / cancellation
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindAmbiguous:
		return "ambiguous"
	case ErrKindPlanFailed:
		return "plan_failed"
	case ErrKindExecFailed:
		return "exec_failed"
	case ErrKindUnavailable:
		return "unavailable"
	case ErrKindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all FinSight subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original lower-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsInvalidInput reports whether err was caused by an unreadable or
// unparseable input (file read/parse failures during schema analysis).
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsNotFound reports whether err represents a missing session, table,
// bucket, or object.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsAmbiguous reports whether err means the planner needs clarification
// from the user before it can produce a query plan.
func IsAmbiguous(err error) bool {
	return kindOf(err) == ErrKindAmbiguous
}

// IsPlanFailed reports whether err is an unexpected planning failure.
func IsPlanFailed(err error) bool {
	return kindOf(err) == ErrKindPlanFailed
}

// IsExecFailed reports whether err is a query execution failure.
func IsExecFailed(err error) bool {
	return kindOf(err) == ErrKindExecFailed
}

// IsUnavailable reports whether err means an external collaborator
// (insight service, storage backend) is unreachable or over quota.
func IsUnavailable(err error) bool {
	return kindOf(err) == ErrKindUnavailable
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
