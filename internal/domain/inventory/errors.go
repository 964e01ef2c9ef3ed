package inventory

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the machine-readable class of a failed ledger operation.
type Kind string

const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindRecordNotFound     Kind = "RecordNotFound"
	KindInsufficientStock  Kind = "InsufficientStock"
	KindLockTimeout        Kind = "LockTimeout"
	KindPersistenceFailure Kind = "PersistenceFailure"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrRecordNotFound     = &Error{Kind: KindRecordNotFound, Message: "record not found"}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrLockTimeout        = &Error{Kind: KindLockTimeout, Message: "lock timeout"}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure, Message: "persistence failure"}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf classifies err. Errors that did not originate in this package are
// treated as storage faults.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistenceFailure
}

// Retryable reports whether the whole operation may be retried as is.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindLockTimeout, KindPersistenceFailure:
		return true
	}
	return false
}

// classify converts a raw store error into an *Error. Context expiry while
// waiting on locks is reported as a lock timeout.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindLockTimeout, Message: "timed out waiting for stock lock", Err: err}
	}
	return &Error{Kind: KindPersistenceFailure, Message: "storage failure", Err: err}
}

func isRejection(err error) bool {
	switch KindOf(err) {
	case KindInvalidRequest, KindRecordNotFound, KindInsufficientStock:
		return true
	}
	return false
}
