// Package apperror defines the error taxonomy shared by all services.
// Handlers map these kinds onto HTTP statuses; raw repository or driver
// errors never cross the handler boundary.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation: malformed or out-of-range input, rejected before any mutation.
	KindValidation Kind = iota
	// KindNotFound: a referenced entity is absent.
	KindNotFound
	// KindPermission: a role or ownership rule was violated.
	KindPermission
	// KindAuth: missing, expired or invalid session.
	KindAuth
	// KindStorage: underlying read/write failure. Fatal, not retried.
	KindStorage
)

// Error carries a user-presentable message plus an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps an underlying I/O failure.
func Storage(err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the taxonomy kind of err, or (0, false) when err is not
// an *Error anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

func IsKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
