package shared

import (
	"errors"
	"net/http"
)

// Error is an error that carries the HTTP status it should be reported with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates an Error with the given status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest returns a 400 Error.
func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}

// Unauthorized returns a 401 Error.
func Unauthorized() *Error {
	return NewError(http.StatusUnauthorized, "Unauthorized")
}

// Forbidden returns a 403 Error.
func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, message)
}

// NotFound returns a 404 Error.
func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

// AsError reports whether err wraps an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
