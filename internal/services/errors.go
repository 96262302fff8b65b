package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure a handler can show to the player. Msg is safe to
// display; Err keeps the underlying cause for logs.
type Error struct {
	Err    error
	Status int
	Msg    string
}

func newError(err error, status int, format string, args ...any) *Error {
	return &Error{Err: err, Status: status, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) && se.Status != 0 {
		return se.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the player-facing message carried by err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return "Something went wrong, please try again"
}
