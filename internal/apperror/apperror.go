// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services and stores return these errors; only the HTTP handlers translate
// them into status codes (see handler/response.go). Every constructor wraps
// one of the sentinels below, so callers branch with errors.Is:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("duplicate")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrStore              = errors.New("store failure")
)

// internalMessage is the only text a client ever sees for infrastructure failures.
const internalMessage = "an internal error occurred"

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error  // underlying failure, only set by Store
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and, for store failures, the original cause.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a uniqueness violation on one field of a resource.
func Duplicate(resource, field string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// InvalidCredentials is returned for both "no such user" and "wrong password".
// The message is fixed so the two cases cannot be told apart.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

// Unauthenticated means no usable identity was presented.
func Unauthenticated(reason string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: reason,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Store wraps a persistence failure. The cause stays reachable through
// errors.Is/As for logging, but Message never carries its details.
func Store(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStore,
		Message: internalMessage,
		cause:   fmt.Errorf("%s: %w", op, cause),
	}
}

// PublicMessage returns the text that is safe to show to a client.
func (e *AppError) PublicMessage() string {
	if e.Err == ErrStore {
		return internalMessage
	}
	return e.Message
}
