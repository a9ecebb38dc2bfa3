package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/babo/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testProducer(w messageWriter) *Producer {
	return &Producer{writer: w, source: "babo-agent", logger: logger.Discard()}
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

type starPayload struct {
	ISBN  string `json:"isbn"`
	Stars int    `json:"stars"`
}

func TestNewEvent_TakesIdentityFromContext(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-7")
	ctx = logger.WithUsername(ctx, "giulia")

	ev, err := NewEvent(ctx, "rating.submitted", "book", "9788804668237", starPayload{ISBN: "9788804668237", Stars: 4})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "book", ev.Subject)
	assert.Equal(t, "9788804668237", ev.Key)
	assert.Equal(t, SchemaVersion, ev.SchemaVersion)
	assert.Equal(t, "corr-7", ev.CorrelationID)
	assert.Equal(t, "giulia", ev.Username)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, 2*time.Second)

	var got starPayload
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, 4, got.Stars)
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent(context.Background(), "rating.submitted", "book", "x", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating.submitted")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "babo.breakdown.rebuilt", Topic("breakdown", "rebuilt"))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithUsername(ctx, "marco")
	ev, err := NewEvent(ctx, "rating.submitted", "book", "9788804668237", starPayload{Stars: 5})
	require.NoError(t, err)

	topic := Topic("rating", "submitted")
	before := testutil.ToFloat64(eventsPublished.WithLabelValues(topic, resultOK))

	require.NoError(t, testProducer(w).Publish(ctx, topic, ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, "9788804668237", string(msg.Key))
	assert.Equal(t, "rating.submitted", header(msg, HeaderType))
	assert.Equal(t, "babo-agent", header(msg, HeaderSource))
	assert.Equal(t, "corr-1", header(msg, HeaderCorrelationID))
	assert.Equal(t, "marco", header(msg, HeaderUsername))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "babo-agent", decoded.Source)

	assert.Equal(t, before+1, testutil.ToFloat64(eventsPublished.WithLabelValues(topic, resultOK)))
}

func TestProducer_Publish_KeepsExplicitSource(t *testing.T) {
	w := &fakeWriter{}
	ev, err := NewEvent(context.Background(), "breakdown.rebuilt", "book", "1", nil)
	require.NoError(t, err)
	ev.Source = "babo-replay"

	require.NoError(t, testProducer(w).Publish(context.Background(), "babo.breakdown.rebuilt", ev))
	assert.Equal(t, "babo-replay", header(w.msgs[0], HeaderSource))
	assert.Empty(t, header(w.msgs[0], HeaderUsername))
}

func TestProducer_Publish_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	ev, err := NewEvent(ctx, "rating.submitted", "book", "isbn", nil)
	require.NoError(t, err)

	require.NoError(t, testProducer(w).Publish(ctx, "babo.rating.submitted", ev))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", header(w.msgs[0], "traceparent"))
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	ev, err := NewEvent(context.Background(), "recommendation.batch_completed", "recommendation_batch", "b-1", nil)
	require.NoError(t, err)

	topic := "babo.test.failing"
	err = testProducer(w).Publish(context.Background(), topic, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), topic)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, float64(1), testutil.ToFloat64(eventsPublished.WithLabelValues(topic, resultError)))
}

func TestProducer_CloseAndConfig(t *testing.T) {
	cfg := DefaultProducerConfig("babo-agent", []string{"localhost:19092"})
	assert.Equal(t, "babo-agent", cfg.Source)
	assert.False(t, cfg.Async)

	p := NewProducer(cfg, nil)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)
	assert.NoError(t, p.Close())

	w := &fakeWriter{}
	require.NoError(t, testProducer(w).Close())
	assert.True(t, w.closed)
}

func TestPingBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.EqualError(t, err, "kafka: no brokers configured")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = PingBrokers(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "existing", Value: []byte("value1")}}
	carrier := NewHeaderCarrier(&headers)

	assert.Equal(t, "value1", carrier.Get("existing"))
	assert.Empty(t, carrier.Get("missing"))

	carrier.Set("new-key", "new-value")
	carrier.Set("existing", "updated")

	assert.Equal(t, "updated", carrier.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new-key"}, carrier.Keys())
	assert.Len(t, headers, 2)
}
