package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies every error the engine can surface.
type Kind string

const (
	// KindInvalidInput covers malformed queries, contradictory ranges and
	// invalid regular expressions.
	KindInvalidInput Kind = "invalid_input"

	// KindNotFound means the lookup target is absent from the index.
	KindNotFound Kind = "not_found"

	// KindAccessDenied and KindIO are per-entry filesystem failures; the
	// enumerator logs and skips them, they never halt a traversal.
	KindAccessDenied Kind = "access_denied"
	KindIO           Kind = "io"

	// KindCancelled marks cooperative cancellation. Never a failure.
	KindCancelled Kind = "cancelled"

	// KindStorageLocked is transient; the caller should retry with backoff.
	KindStorageLocked Kind = "storage_locked"

	// Terminal storage conditions.
	KindSchemaMismatch Kind = "schema_mismatch"
	KindStorageCorrupt Kind = "storage_corrupt"
	KindNotInitialized Kind = "not_initialized"

	// KindPoolExhausted means the string pool ran out of id space.
	KindPoolExhausted Kind = "pool_exhausted"

	// KindAlreadyInProgress means a second indexing run was started
	// without stopping the first.
	KindAlreadyInProgress Kind = "already_in_progress"

	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// Error is the typed error carried across package boundaries. Path and
// Operation are optional context.
type Error struct {
	Kind       Kind
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// New creates an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{
		Kind:       kind,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Newf creates an Error with a formatted underlying message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

// WithPath attaches path context to the error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed for %s: %v", e.Kind, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Kind, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches against another *Error by kind, so sentinel comparisons like
// errors.Is(err, errors.New(KindStorageLocked, ...)) work across wrapping.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// KindOf extracts the Kind from an error chain, or KindInternal when the
// chain carries no typed error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return IsKind(err, KindStorageLocked)
}

// IsCancelled reports whether the error chain is a cooperative cancellation,
// from either this package or context.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return IsKind(err, KindCancelled) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
