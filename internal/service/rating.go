package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/internal/repository"
	apperrors "github.com/utafrali/babo/pkg/errors"
)

// RatingResult is returned after a rating was accepted by the server.
type RatingResult struct {
	Message   string                   `json:"message"`
	Score     domain.AggregateScore    `json:"score"`
	Rating    *domain.BookRating       `json:"rating,omitempty"`
	Breakdown domain.BreakdownSnapshot `json:"breakdown"`
}

// RatingService validates and submits ratings and keeps per-book breakdowns.
type RatingService struct {
	transport Transport
	store     repository.BreakdownStore
	events    EventPublisher
	logger    *slog.Logger
}

// NewRatingService creates a new rating service. events may be nil.
func NewRatingService(transport Transport, store repository.BreakdownStore, events EventPublisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		transport: transport,
		store:     store,
		events:    events,
		logger:    logger,
	}
}

// Validate checks a submission locally and previews its aggregate score.
func (s *RatingService) Validate(sub domain.RatingSubmission) (domain.ValidationResult, domain.AggregateScore) {
	return domain.Validate(sub), domain.Aggregate(sub.Scores())
}

// Submit validates sub, sends it upstream and folds it into the book's
// breakdown. Invalid submissions never reach the network.
func (s *RatingService) Submit(ctx context.Context, sub domain.RatingSubmission) (*RatingResult, error) {
	if err := domain.Validate(sub).Err(); err != nil {
		ratingsSubmitted.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}

	resp, err := s.transport.SubmitRating(ctx, sub)
	if err != nil {
		ratingsSubmitted.WithLabelValues(resultConnection).Inc()
		return nil, transportError(err)
	}
	if !resp.Success {
		ratingsSubmitted.WithLabelValues(resultRejected).Inc()
		return nil, rejection(resp.Message, "rating was rejected")
	}
	ratingsSubmitted.WithLabelValues(resultSuccess).Inc()

	scores := sub.Scores()
	if resp.Rating != nil {
		scores = resp.Rating.Scores
	}
	score := domain.Aggregate(scores)

	// The server already holds the rating, so local bookkeeping failures are
	// logged rather than returned.
	if err := s.store.Add(ctx, sub.ISBN, domain.Contribution(scores)); err != nil {
		s.logger.WarnContext(ctx, "failed to fold rating into breakdown",
			slog.String("isbn", sub.ISBN),
			slog.String("error", err.Error()),
		)
	}
	if s.events != nil {
		if err := s.events.PublishRatingSubmitted(ctx, sub, score); err != nil {
			s.logger.WarnContext(ctx, "failed to publish rating event",
				slog.String("isbn", sub.ISBN),
				slog.String("error", err.Error()),
			)
		}
	}

	result := &RatingResult{
		Message: resp.Message,
		Score:   score,
		Rating:  resp.Rating,
	}
	if b, err := s.store.Get(ctx, sub.ISBN); err == nil {
		result.Breakdown = b.Snapshot()
	} else {
		result.Breakdown = domain.Breakdown{}.Snapshot()
	}

	s.logger.InfoContext(ctx, "rating submitted",
		slog.String("isbn", sub.ISBN),
		slog.Float64("average", score.Average),
		slog.String("label", score.Label),
	)

	return result, nil
}

// Breakdown returns the stored breakdown of a book.
func (s *RatingService) Breakdown(ctx context.Context, isbn string) (domain.BreakdownSnapshot, error) {
	isbn = domain.NormalizeISBN(isbn)
	if isbn == "" {
		return domain.BreakdownSnapshot{}, apperrors.InvalidInput("isbn is required")
	}

	b, err := s.store.Get(ctx, isbn)
	if err != nil {
		return domain.BreakdownSnapshot{}, fmt.Errorf("get breakdown: %w", err)
	}
	return b.Snapshot(), nil
}

// RebuildBreakdown refolds a book's breakdown from the server's full rating
// list and replaces the stored one.
func (s *RatingService) RebuildBreakdown(ctx context.Context, isbn string) (domain.BreakdownSnapshot, error) {
	isbn = domain.NormalizeISBN(isbn)
	if isbn == "" {
		return domain.BreakdownSnapshot{}, apperrors.InvalidInput("isbn is required")
	}

	resp, err := s.transport.FetchBookRatings(ctx, isbn)
	if err != nil {
		return domain.BreakdownSnapshot{}, transportError(err)
	}
	if !resp.Success {
		return domain.BreakdownSnapshot{}, rejection(resp.Message, "ratings could not be loaded")
	}

	b := domain.BuildBreakdown(resp.Ratings)
	if err := s.store.Replace(ctx, isbn, b); err != nil {
		return domain.BreakdownSnapshot{}, fmt.Errorf("replace breakdown: %w", err)
	}
	snap := b.Snapshot()

	if s.events != nil {
		if err := s.events.PublishBreakdownRebuilt(ctx, isbn, snap); err != nil {
			s.logger.WarnContext(ctx, "failed to publish breakdown event",
				slog.String("isbn", isbn),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "breakdown rebuilt",
		slog.String("isbn", isbn),
		slog.Int64("total_ratings", snap.TotalRatings),
	)

	return snap, nil
}
