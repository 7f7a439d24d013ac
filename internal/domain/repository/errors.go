package repository

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a storage failure. The set is closed and has the same
// meaning regardless of which backend produced it.
type ErrorKind int

const (
	// Conflict means a uniqueness or optimistic-concurrency condition failed:
	// a duplicate insert, a stale version on update, or a taken target email.
	Conflict ErrorKind = iota
	// UserNotFound means no record existed for the email at operation time.
	UserNotFound
	// RequestRejected means the backend was reachable but refused the request.
	RequestRejected
	// DatabaseDown means the backend was unreachable or the call timed out.
	DatabaseDown
	// EmailChangeIncomplete means an email change inserted the record under
	// the new address but failed to delete the old one. Both records exist;
	// the caller decides whether to retry the delete or surface the state.
	EmailChangeIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case Conflict:
		return "CONFLICT"
	case UserNotFound:
		return "USER_NOT_FOUND"
	case RequestRejected:
		return "REQUEST_REJECTED"
	case DatabaseDown:
		return "DATABASE_DOWN"
	case EmailChangeIncomplete:
		return "EMAIL_CHANGE_INCOMPLETE"
	}
	return "UNKNOWN"
}

// Error is a storage failure scoped to a single operation on a single email.
// It carries the original backend cause for diagnostics.
type Error struct {
	Kind    ErrorKind
	Email   string
	Message string
	Cause   error
}

func NewError(kind ErrorKind, email, message string, cause error) *Error {
	return &Error{Kind: kind, Email: email, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (user %s): %v", e.Kind, e.Message, e.Email, e.Cause)
	}
	return fmt.Sprintf("%s: %s (user %s)", e.Kind, e.Message, e.Email)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err is a storage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// KindOf returns the kind of a storage error, or RequestRejected if err is
// not a storage Error (a malformed error is still an operation-scoped fault).
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return RequestRejected
}
