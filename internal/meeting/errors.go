package meeting

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is; the concrete error is an *Error
// carrying a message meant for the end user.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
)

// Error is a business-rule failure. It never indicates that anything was
// written.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error { return newError(ErrValidation, format, args...) }
func conflictf(format string, args ...any) error   { return newError(ErrConflict, format, args...) }
func forbiddenf(format string, args ...any) error  { return newError(ErrForbidden, format, args...) }
func notFoundf(format string, args ...any) error   { return newError(ErrNotFound, format, args...) }
