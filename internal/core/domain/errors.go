package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every failure the HTTP and GraphQL boundaries know how to
// render wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain failure carrying a user-facing message and optional
// field-level details. It unwraps to its Kind so callers can use errors.Is.
type Error struct {
	Kind    error
	Message string
	Data    []FieldError
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns an ErrValidation error with the given field details.
func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Data: fields}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// Sentinel instances shared by repositories and services.
var (
	ErrUserNotFound = NotFound("User not found.")
	ErrPostNotFound = NotFound("Post not found!")
	ErrUserExists   = Conflict("E-Mail address already exists!")
)

// StatusCode returns the HTTP status matching the kind of err, or 500 for
// anything that is not a domain error. GraphQL reports it as the error code.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
