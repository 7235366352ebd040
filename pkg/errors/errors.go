package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
// Details carries machine-readable context (lock holder, expiry) that callers
// need to decide between retry, backoff, and surfacing a conflict.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key-value pair to the error's detail map.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrUnavailable,
	}
}

// CartNotFound creates a 404 error with the CART_NOT_FOUND code. The code is
// distinct from plain NOT_FOUND because callers must not confuse a missing
// cart with a lock-state conflict on an existing cart.
func CartNotFound(cartID string) *AppError {
	return &AppError{
		Code:    "CART_NOT_FOUND",
		Message: fmt.Sprintf("cart %s not found", cartID),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// CartAlreadyLocked creates a 409 error reporting the current lock holder and
// expiry so the caller can decide to wait or surface the conflict.
func CartAlreadyLocked(cartID, holderSession string, lockedUntil time.Time) *AppError {
	e := &AppError{
		Code:    "CART_ALREADY_LOCKED",
		Message: fmt.Sprintf("cart %s is locked by another checkout session", cartID),
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
	return e.
		WithDetail("locked_by_session", holderSession).
		WithDetail("locked_until", lockedUntil.UTC().Format(time.RFC3339))
}

// CartLocked creates a 409 error for mutations attempted while a cart is
// locked during checkout.
func CartLocked(cartID, holderSession string, lockedUntil time.Time) *AppError {
	e := &AppError{
		Code:    "CART_LOCKED",
		Message: fmt.Sprintf("cart %s is locked during checkout and cannot be modified", cartID),
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
	return e.
		WithDetail("locked_by_session", holderSession).
		WithDetail("locked_until", lockedUntil.UTC().Format(time.RFC3339))
}

// UnauthorizedUnlock creates a 403 error for an unlock attempt by a session
// that does not hold the lock.
func UnauthorizedUnlock(cartID, holderSession string) *AppError {
	e := &AppError{
		Code:    "UNAUTHORIZED_UNLOCK",
		Message: fmt.Sprintf("cart %s is locked by a different checkout session", cartID),
		Status:  http.StatusForbidden,
		Err:     ErrUnauthorized,
	}
	return e.WithDetail("locked_by_session", holderSession)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
