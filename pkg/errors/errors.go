package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrGone           = errors.New("gone")
	ErrRejected       = errors.New("rejected")
	ErrConnection     = errors.New("connection error")
)

// ConnectionErrorMessage is the generic message shown for any failure to reach
// the upstream service, whatever the underlying cause.
const ConnectionErrorMessage = "connection error"

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Status  int      `json:"-"`
	Err     error    `json:"-"`
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

func newError(code, message string, status int, sentinel error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound reports a missing resource such as a recommendation session.
func NotFound(resource, id string) *AppError {
	return newError("NOT_FOUND", fmt.Sprintf("%s with id %s not found", resource, id), http.StatusNotFound, ErrNotFound)
}

// InvalidInput reports a request the agent cannot interpret.
func InvalidInput(message string) *AppError {
	return newError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// ValidationFailed carries every violated rule; Message joins them.
func ValidationFailed(violations []string) *AppError {
	e := newError("VALIDATION_ERROR", strings.Join(violations, "; "), http.StatusBadRequest, ErrInvalidInput)
	e.Details = violations
	return e
}

// SelectionRejected reports a candidate refused locally, before any network call.
func SelectionRejected(reason string) *AppError {
	return newError("SELECTION_REJECTED", reason, http.StatusUnprocessableEntity, ErrInvalidInput)
}

// Rejected reports a success:false answer of the upstream service. The
// server's wording is kept.
func Rejected(message string) *AppError {
	return newError("REJECTED", message, http.StatusUnprocessableEntity, ErrRejected)
}

// ConnectionFailed reports a transport-level failure. The cause is kept for
// logs and errors.Is but never shown in the message.
func ConnectionFailed(cause error) *AppError {
	return newError("CONNECTION_ERROR", ConnectionErrorMessage, http.StatusBadGateway, errors.Join(ErrConnection, cause))
}

func Unauthorized(message string) *AppError {
	return newError("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return newError("FORBIDDEN", message, http.StatusForbidden, ErrForbidden)
}

// Conflict reports a state clash, such as a second batch while one is in flight.
func Conflict(message string) *AppError {
	return newError("CONFLICT", message, http.StatusConflict, ErrConflict)
}

func Gone(message string) *AppError {
	return newError("GONE", message, http.StatusGone, ErrGone)
}

func ServiceUnavailable(message string) *AppError {
	return newError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, ErrServiceUnavail)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return newError("INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError, err)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsConnection reports whether err is a transport-level failure.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// sentinelStatus lists plain sentinels in match order.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrGone, http.StatusGone},
	{ErrRejected, http.StatusUnprocessableEntity},
	{ErrConnection, http.StatusBadGateway},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus returns the status an AppError carries, or the one of the
// first sentinel err wraps. Anything else is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
