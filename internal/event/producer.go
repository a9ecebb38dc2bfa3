package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/babo/internal/domain"
	pkgkafka "github.com/utafrali/babo/pkg/kafka"
)

// Kafka topics for agent events.
var (
	TopicRatingSubmitted       = pkgkafka.Topic("rating", "submitted")
	TopicBreakdownRebuilt      = pkgkafka.Topic("breakdown", "rebuilt")
	TopicRecommendationBatched = pkgkafka.Topic("recommendation", "batch_completed")
)

// Event subjects; the event key is the book ISBN or the batch ID.
const (
	SubjectBook  = "book"
	SubjectBatch = "recommendation_batch"
)

// SourceAgent identifies events published by this process.
const SourceAgent = "babo-agent"

// RatingSubmittedData is the payload for a rating.submitted event.
type RatingSubmittedData struct {
	Username string                `json:"username"`
	ISBN     string                `json:"isbn"`
	Scores   domain.Scores         `json:"scores"`
	Score    domain.AggregateScore `json:"score"`
}

// BreakdownRebuiltData is the payload for a breakdown.rebuilt event.
type BreakdownRebuiltData struct {
	ISBN      string                   `json:"isbn"`
	Breakdown domain.BreakdownSnapshot `json:"breakdown"`
}

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes agent domain events. A Producer without a Kafka
// publisher drops events, which is how the agent runs when no brokers are
// configured.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishRatingSubmitted publishes a rating.submitted event.
func (p *Producer) PublishRatingSubmitted(ctx context.Context, sub domain.RatingSubmission, score domain.AggregateScore) error {
	data := RatingSubmittedData{
		Username: sub.Username,
		ISBN:     sub.ISBN,
		Scores:   sub.Scores(),
		Score:    score,
	}
	return p.publish(ctx, TopicRatingSubmitted, sub.ISBN, SubjectBook, data)
}

// PublishBreakdownRebuilt publishes a breakdown.rebuilt event.
func (p *Producer) PublishBreakdownRebuilt(ctx context.Context, isbn string, snap domain.BreakdownSnapshot) error {
	data := BreakdownRebuiltData{ISBN: isbn, Breakdown: snap}
	return p.publish(ctx, TopicBreakdownRebuilt, isbn, SubjectBook, data)
}

// PublishBatchCompleted publishes a recommendation.batch_completed event.
func (p *Producer) PublishBatchCompleted(ctx context.Context, outcome domain.BatchOutcome) error {
	return p.publish(ctx, TopicRecommendationBatched, outcome.BatchID, SubjectBatch, outcome)
}

func (p *Producer) publish(ctx context.Context, topic, key, subject string, data any) error {
	if !p.Enabled() {
		return nil
	}

	ev, err := pkgkafka.NewEvent(ctx, topic, subject, key, data)
	if err != nil {
		return err
	}
	ev.Source = SourceAgent

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("key", key),
	)

	return nil
}
