package service

import (
	"errors"

	apperrors "github.com/utafrali/babo/pkg/errors"
)

// transportError normalises a Transport error. Errors that already carry an
// application code pass through; anything else is a connection failure.
func transportError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ConnectionFailed(err)
}

// rejection turns a success:false answer into a domain rejection.
func rejection(message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return apperrors.Rejected(message)
}
