package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/babo/pkg/logger"
)

// TopicPrefix namespaces every topic the agent writes to.
const TopicPrefix = "babo"

// SchemaVersion is bumped whenever a payload changes incompatibly.
const SchemaVersion = 1

// Topic builds a topic name such as "babo.rating.submitted".
func Topic(subject, action string) string {
	return TopicPrefix + "." + subject + "." + action
}

// Event is the envelope of every message the agent publishes. Key is the
// partition key (a book ISBN or a batch ID) and Subject names what it keys.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Subject       string          `json:"subject"`
	Key           string          `json:"key"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Username      string          `json:"username,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent encodes payload into a fresh envelope. The correlation ID and the
// acting username are taken from ctx when present.
func NewEvent(ctx context.Context, eventType, subject, key string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Subject:       subject,
		Key:           key,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Username:      logger.UsernameFromContext(ctx),
		Payload:       raw,
	}, nil
}

// Decode unmarshals the payload into target.
func (e *Event) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}
