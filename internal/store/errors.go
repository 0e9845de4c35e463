package store

import (
	"errors"
	"fmt"
)

// Kind categorises store failures. The set is closed: every error returned
// by a Store method is an *Error carrying one of these kinds.
type Kind string

const (
	// KindStorage indicates a SQLite failure (query, constraint, connection).
	KindStorage Kind = "STORAGE_FAULT"

	// KindSerialization indicates a stored value that cannot be decoded,
	// such as a malformed timestamp.
	KindSerialization Kind = "SERIALIZATION_FAULT"

	// KindIO indicates a filesystem failure, e.g. creating the data directory.
	KindIO Kind = "IO_FAULT"

	// KindNotFound indicates the operation referenced a nonexistent note id.
	KindNotFound Kind = "NOT_FOUND"

	// KindInvalid indicates caller input rejected before touching storage.
	KindInvalid Kind = "INVALID"

	// KindNotInitialized indicates use of a store that was never opened or
	// has been closed.
	KindNotInitialized Kind = "NOT_INITIALIZED"

	// KindPoisoned indicates a previous operation panicked while holding the
	// connection lock. The store is unusable and must not be retried.
	KindPoisoned Kind = "POISONED"
)

// Error is the typed error returned by Store operations.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op is the store operation that failed ("create", "merge", ...).
	Op string

	// ID is the note id involved, when there is one.
	ID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	errClosed   = errors.New("store is closed")
	errPoisoned = errors.New("store unusable: a previous operation panicked while holding the connection")
)

// KindOf returns the Kind of a store error, or "" if err is not one.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNotFound returns true if err reports a missing note.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnusable returns true if the store can no longer serve requests,
// either because it was closed or because its lock holder panicked.
func IsUnusable(err error) bool {
	k := KindOf(err)
	return k == KindPoisoned || k == KindNotInitialized
}

func newError(op string, kind Kind, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func notFound(op, id string) *Error {
	return newError(op, KindNotFound, id, nil)
}

// classify passes store errors through and wraps anything else as a
// storage fault attributed to op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return newError(op, KindStorage, "", err)
}
