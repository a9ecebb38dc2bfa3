package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/babo/pkg/errors"
	"github.com/utafrali/babo/pkg/logger"
	"github.com/utafrali/babo/pkg/validator"
)

// Response is the standard JSON response envelope of the local API.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   []string          `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v inside the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// sentinelCodes renders plain sentinel errors that never became an AppError.
// publicMessage false replaces the error text with a fixed one.
var sentinelCodes = []struct {
	err           error
	code          string
	message       string
	publicMessage bool
}{
	{apperrors.ErrNotFound, "NOT_FOUND", "resource not found", false},
	{apperrors.ErrConflict, "CONFLICT", "", true},
	{apperrors.ErrInvalidInput, "INVALID_INPUT", "", true},
	{apperrors.ErrConnection, "CONNECTION_ERROR", apperrors.ConnectionErrorMessage, false},
}

// errorBody picks the status and public body for err. Internal details of
// unknown errors are never exposed.
func errorBody(err error) (int, ErrorResponse) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}

	status := apperrors.HTTPStatus(err)
	for _, s := range sentinelCodes {
		if !errors.Is(err, s.err) {
			continue
		}
		msg := s.message
		if s.publicMessage {
			msg = err.Error()
		}
		return status, ErrorResponse{Code: s.code, Message: msg}
	}
	return status, ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
}

// WriteError writes the error envelope for err and logs server-side
// failures. It prefers the request-scoped logger over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, body := errorBody(err)
	body.RequestID = logger.CorrelationIDFromContext(r.Context())

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: &body})
}

// WriteValidationError writes a standardized validation error response.
// Field-level messages come from the validator package when available.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Details: valErr.Messages(),
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
