package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Header keys set on every published message.
const (
	HeaderType          = "event_type"
	HeaderSource        = "source"
	HeaderCorrelationID = "correlation_id"
	HeaderUsername      = "username"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers []string
	// Source is stamped on events that do not carry one.
	Source       string
	BatchSize    int
	BatchTimeout time.Duration
	Async        bool
}

// DefaultProducerConfig favours latency over throughput: the agent emits a
// handful of events per user action.
func DefaultProducerConfig(source string, brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		Source:       source,
		BatchSize:    16,
		BatchTimeout: 5 * time.Millisecond,
	}
}

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes with kafka-go.
type Producer struct {
	writer  messageWriter
	brokers []string
	source  string
	logger  *slog.Logger
}

// NewProducer creates a producer. No connection is made until the first
// publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
			RequiredAcks: kafka.RequireAll,
		},
		brokers: cfg.Brokers,
		source:  cfg.Source,
		logger:  logger,
	}
}

// Publish writes ev to topic keyed by ev.Key, so all events about one book
// stay ordered on one partition.
func (p *Producer) Publish(ctx context.Context, topic string, ev *Event) error {
	if ev.Source == "" {
		ev.Source = p.source
	}

	msg, err := message(topic, ev)
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&msg.Headers))

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	publishLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	if err != nil {
		eventsPublished.WithLabelValues(topic, resultError).Inc()
		p.logger.ErrorContext(ctx, "event not published",
			slog.String("topic", topic),
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s to %s: %w", ev.Type, topic, err)
	}

	eventsPublished.WithLabelValues(topic, resultOK).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", ev.ID),
		slog.String("key", ev.Key),
	)
	return nil
}

func message(topic string, ev *Event) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s envelope: %w", ev.Type, err)
	}

	msg := kafka.Message{Topic: topic, Key: []byte(ev.Key), Value: value}
	carrier := NewHeaderCarrier(&msg.Headers)
	carrier.Set(HeaderType, ev.Type)
	carrier.Set(HeaderSource, ev.Source)
	if ev.CorrelationID != "" {
		carrier.Set(HeaderCorrelationID, ev.CorrelationID)
	}
	if ev.Username != "" {
		carrier.Set(HeaderUsername, ev.Username)
	}
	return msg, nil
}

// Ping checks that at least one configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil as soon as one broker answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range brokers {
		if err := pingBroker(ctx, addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka: no broker reachable: %w", errors.Join(errs...))
}

func pingBroker(ctx context.Context, addr string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
