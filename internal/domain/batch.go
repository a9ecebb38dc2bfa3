package domain

import (
	"errors"
	"time"

	apperrors "github.com/utafrali/babo/pkg/errors"
)

// BatchStatus summarises a batch submission.
type BatchStatus string

const (
	BatchFullSuccess BatchStatus = "FULL_SUCCESS"
	BatchPartial     BatchStatus = "PARTIAL"
	BatchFailure     BatchStatus = "FAILURE"
)

// FailureKind separates "server said no" from "could not reach server".
type FailureKind string

const (
	FailureRejected   FailureKind = "rejected"
	FailureConnection FailureKind = "connection"
)

// ItemFailure records why one book in a batch was not recommended.
type ItemFailure struct {
	ISBN   string      `json:"isbn"`
	Reason string      `json:"reason"`
	Kind   FailureKind `json:"kind"`
}

// BatchOutcome is the joined result of a batch submission.
type BatchOutcome struct {
	BatchID      string        `json:"batch_id"`
	Username     string        `json:"username"`
	TargetISBN   string        `json:"target_isbn"`
	Requested    int           `json:"requested"`
	SuccessCount int           `json:"success_count"`
	Succeeded    []string      `json:"succeeded"`
	Failures     []ItemFailure `json:"failures"`
	Status       BatchStatus   `json:"status"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// ClassifyBatch derives the batch status from the success count. An empty
// batch counts as a full success.
func ClassifyBatch(successCount, requested int) BatchStatus {
	switch {
	case successCount == requested:
		return BatchFullSuccess
	case successCount == 0:
		return BatchFailure
	default:
		return BatchPartial
	}
}

// FailureFromError classifies an item error. Domain errors keep the server's
// message; anything else is reported as a connection error.
func FailureFromError(isbn string, err error) ItemFailure {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && !apperrors.IsConnection(err) {
		return ItemFailure{ISBN: isbn, Reason: appErr.Message, Kind: FailureRejected}
	}
	return ItemFailure{ISBN: isbn, Reason: apperrors.ConnectionErrorMessage, Kind: FailureConnection}
}
