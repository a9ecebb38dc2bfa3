package repository

import (
	"context"

	"github.com/utafrali/babo/internal/domain"
)

// BreakdownStore keeps the running rating fold of each book.
type BreakdownStore interface {
	// Get returns the fold for isbn. A book with no ratings yields a zero Breakdown.
	Get(ctx context.Context, isbn string) (domain.Breakdown, error)

	// Add merges a partial fold into the stored one.
	Add(ctx context.Context, isbn string, delta domain.Breakdown) error

	// Replace overwrites the stored fold wholesale.
	Replace(ctx context.Context, isbn string, b domain.Breakdown) error
}
