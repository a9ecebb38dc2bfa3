package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/pkg/tracing"
)

// SubmitFunc sends one recommendation. A nil error is success.
type SubmitFunc func(ctx context.Context, candidateISBN string) error

// QuotaRefresher re-reads the quota from the server.
type QuotaRefresher interface {
	Refresh(ctx context.Context) (domain.RecommendationQuota, error)
}

// EventPublisher publishes agent domain events. Satisfied by *event.Producer.
type EventPublisher interface {
	PublishRatingSubmitted(ctx context.Context, sub domain.RatingSubmission, score domain.AggregateScore) error
	PublishBreakdownRebuilt(ctx context.Context, isbn string, snap domain.BreakdownSnapshot) error
	PublishBatchCompleted(ctx context.Context, outcome domain.BatchOutcome) error
}

// BatchSubmitter fans a selection out into concurrent recommendation
// requests and joins them into one BatchOutcome.
type BatchSubmitter struct {
	events EventPublisher
	logger *slog.Logger
	tracer trace.Tracer
}

// NewBatchSubmitter creates a new batch submitter. events may be nil.
func NewBatchSubmitter(events EventPublisher, logger *slog.Logger) *BatchSubmitter {
	return &BatchSubmitter{
		events: events,
		logger: logger,
		tracer: tracing.Tracer("github.com/utafrali/babo/internal/service"),
	}
}

// Submit dispatches one request per selected book without waiting between
// them, waits for all of them, and then refreshes the quota exactly once.
// Dispatched requests ignore cancellation of ctx, so a batch always runs to
// completion. Item failures never abort siblings.
func (b *BatchSubmitter) Submit(
	ctx context.Context,
	username, targetISBN string,
	sel domain.Selection,
	submitOne SubmitFunc,
	quota QuotaRefresher,
) domain.BatchOutcome {
	items := sel.Items()
	outcome := domain.BatchOutcome{
		BatchID:    uuid.New().String(),
		Username:   username,
		TargetISBN: targetISBN,
		Requested:  len(items),
		Succeeded:  []string{},
		Failures:   []domain.ItemFailure{},
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := b.tracer.Start(ctx, "recommendation.batch", trace.WithAttributes(
		attribute.String("batch.id", outcome.BatchID),
		attribute.String("batch.target_isbn", targetISBN),
		attribute.Int("batch.size", len(items)),
	))
	defer span.End()

	start := time.Now()
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, isbn := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = b.submitItem(ctx, outcome.BatchID, isbn, submitOne)
		}()
	}
	wg.Wait()
	batchDuration.Observe(time.Since(start).Seconds())

	for i, isbn := range items {
		if errs[i] == nil {
			outcome.SuccessCount++
			outcome.Succeeded = append(outcome.Succeeded, isbn)
			batchItemsTotal.WithLabelValues(resultSuccess).Inc()
			continue
		}
		failure := domain.FailureFromError(isbn, errs[i])
		outcome.Failures = append(outcome.Failures, failure)
		batchItemsTotal.WithLabelValues(string(failure.Kind)).Inc()
	}
	outcome.Status = domain.ClassifyBatch(outcome.SuccessCount, outcome.Requested)
	outcome.CompletedAt = time.Now().UTC()
	batchesTotal.WithLabelValues(string(outcome.Status)).Inc()

	if quota != nil {
		if _, err := quota.Refresh(ctx); err != nil {
			b.logger.WarnContext(ctx, "quota refresh after batch failed",
				slog.String("batch_id", outcome.BatchID),
				slog.String("error", err.Error()),
			)
		}
	}

	span.SetAttributes(
		attribute.String("batch.status", string(outcome.Status)),
		attribute.Int("batch.success_count", outcome.SuccessCount),
	)
	if outcome.Status == domain.BatchFailure && outcome.Requested > 0 {
		span.SetStatus(codes.Error, "all recommendations failed")
	}

	if b.events != nil {
		if err := b.events.PublishBatchCompleted(ctx, outcome); err != nil {
			b.logger.WarnContext(ctx, "failed to publish batch outcome",
				slog.String("batch_id", outcome.BatchID),
				slog.String("error", err.Error()),
			)
		}
	}

	b.logger.InfoContext(ctx, "recommendation batch completed",
		slog.String("batch_id", outcome.BatchID),
		slog.String("target_isbn", targetISBN),
		slog.String("status", string(outcome.Status)),
		slog.Int("requested", outcome.Requested),
		slog.Int("succeeded", outcome.SuccessCount),
	)

	return outcome
}

// submitItem runs one request, turning a panic into an ordinary item error.
func (b *BatchSubmitter) submitItem(ctx context.Context, batchID, isbn string, submitOne SubmitFunc) (err error) {
	ctx, span := b.tracer.Start(ctx, "recommendation.item", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.String("item.isbn", isbn),
	))
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "recommendation request panicked",
				slog.String("batch_id", batchID),
				slog.String("isbn", isbn),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("recommend %s: panic: %v", isbn, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return submitOne(ctx, isbn)
}
