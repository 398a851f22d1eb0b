package store

import (
	"fmt"
	"net/http"
)

// Error is a storage failure that maps onto an HTTP status. Two errors are
// equal under errors.Is when their codes match, so sentinels still match
// after WithMessage or WithCause.
type Error struct {
	Code    int
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

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a copy of e with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

var (
	ErrNotFound      = &Error{Code: http.StatusNotFound, Message: "resource not found"}
	ErrAlreadyExists = &Error{Code: http.StatusConflict, Message: "resource already exists"}
	ErrInvalidInput  = &Error{Code: http.StatusBadRequest, Message: "invalid input"}
)

// NotFound names the missing record, e.g. NotFound("run", id).
func NotFound(entity string, key any) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s %v not found", entity, key))
}

// Conflict names the colliding field, e.g. Conflict("email", addr).
func Conflict(field string, value any) *Error {
	return ErrAlreadyExists.WithMessage(fmt.Sprintf("%s %v already exists", field, value))
}
