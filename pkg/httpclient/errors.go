package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/babo/pkg/errors"
)

// maxErrorResponse bounds how much of an error body is read.
const maxErrorResponse = 1 << 20

// UpstreamErrorResponse covers the two error bodies the upstream service sends:
// the structured {"error":{...}} envelope and the flat {"success":false,"message":...} form.
type UpstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// reason returns the server's code and message, or ok=false when the body
// is neither recognised form.
func (u UpstreamErrorResponse) reason() (code, message string, ok bool) {
	switch {
	case u.Error != nil:
		return u.Error.Code, u.Error.Message, true
	case u.Success != nil && !*u.Success && u.Message != "":
		return "", u.Message, true
	default:
		return "", "", false
	}
}

// statusErrors maps the statuses that carry meaning to AppError constructors.
// Each receives the message already prefixed with the service name.
var statusErrors = map[int]func(msg string) *apperrors.AppError{
	http.StatusBadRequest:         apperrors.InvalidInput,
	http.StatusUnauthorized:       apperrors.Unauthorized,
	http.StatusForbidden:          apperrors.Forbidden,
	http.StatusConflict:           apperrors.Conflict,
	http.StatusGone:               apperrors.Gone,
	http.StatusServiceUnavailable: apperrors.ServiceUnavailable,
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// turns it into an AppError when the status carries meaning. Bodies it cannot
// read as an upstream error become a plain error with the status and raw body.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorResponse))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var upstream UpstreamErrorResponse
	if json.Unmarshal(body, &upstream) == nil {
		if code, message, ok := upstream.reason(); ok {
			return mapUpstreamError(resp.StatusCode, code, message, serviceName)
		}
	}
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, body)
}

func mapUpstreamError(status int, code, message, serviceName string) error {
	qualified := serviceName + ": " + message

	if build, ok := statusErrors[status]; ok {
		return build(qualified)
	}
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusUnprocessableEntity:
		// Domain rejections keep the server's own wording.
		return apperrors.Rejected(message)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}

	if code == "" {
		code = http.StatusText(status)
	}
	return &apperrors.AppError{Code: code, Message: qualified, Status: status}
}

// IsClientError reports whether status is a 4xx. The upstream answers domain
// rejections with 4xx bodies, so these never count as connection failures.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
