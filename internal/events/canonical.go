// Package events publishes versioned intake events for downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source names this service in every envelope.
const Source = "patient-intake"

// Event is a payload with a dotted, versioned type such as
// "intake.booking.confirmed.v1".
type Event interface {
	EventType() string
}

// Envelope is the wire form shared by all intake events.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	Version       int             `json:"version"`
	Source        string          `json:"source"`
	Aggregate     string          `json:"aggregate"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("events: %s envelope has no payload", e.EventType)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("events: decode %s: %w", e.EventType, err)
	}
	return nil
}

// EnvelopeOption adjusts a new envelope.
type EnvelopeOption func(*Envelope)

func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

func WithOccurredAt(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if !ts.IsZero() {
			e.OccurredAt = ts.UTC()
		}
	}
}

var (
	ErrMissingAggregate = errors.New("events: aggregate is required")
	ErrNilEvent         = errors.New("events: event is required")
	ErrBadEventType     = errors.New("events: event type must end in .v<N>")

	nowFunc = time.Now
)

// NewEnvelope wraps evt for publishing. The aggregate names the entity the
// event is about ("patient:<id>"); the correlation id ties related events.
func NewEnvelope(aggregate, correlationID string, evt Event, opts ...EnvelopeOption) (Envelope, error) {
	aggregate = strings.TrimSpace(aggregate)
	if aggregate == "" {
		return Envelope{}, ErrMissingAggregate
	}
	if evt == nil {
		return Envelope{}, ErrNilEvent
	}
	eventType := strings.TrimSpace(evt.EventType())
	version, err := versionOf(eventType)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}

	env := Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		Version:       version,
		Source:        Source,
		Aggregate:     aggregate,
		OccurredAt:    nowFunc().UTC(),
		CorrelationID: strings.TrimSpace(correlationID),
		Payload:       payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

func versionOf(eventType string) (int, error) {
	i := strings.LastIndex(eventType, ".v")
	if i <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadEventType, eventType)
	}
	v, err := strconv.Atoi(eventType[i+2:])
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", ErrBadEventType, eventType)
	}
	return v, nil
}
