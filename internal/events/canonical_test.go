package events

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typedEvent string

func (e typedEvent) EventType() string { return string(e) }

func TestNewEnvelope(t *testing.T) {
	fixedNow := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	env, err := NewEnvelope(" patient:p-1 ", "visit-1", BookingConfirmedV1{
		VisitID:   "visit-1",
		PatientID: "p-1",
		StartsAt:  fixedNow.Add(24 * time.Hour),
	}, WithEventID(id))
	require.NoError(t, err)

	assert.Equal(t, id, env.EventID)
	assert.Equal(t, "intake.booking.confirmed.v1", env.EventType)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, Source, env.Source)
	assert.Equal(t, "patient:p-1", env.Aggregate)
	assert.Equal(t, "visit-1", env.CorrelationID)
	assert.True(t, env.OccurredAt.Equal(fixedNow))

	var evt BookingConfirmedV1
	require.NoError(t, env.Decode(&evt))
	assert.Equal(t, "p-1", evt.PatientID)
}

func TestNewEnvelopeValidation(t *testing.T) {
	_, err := NewEnvelope("", "", BookingConfirmedV1{})
	assert.ErrorIs(t, err, ErrMissingAggregate)

	_, err = NewEnvelope("agg", "", nil)
	assert.ErrorIs(t, err, ErrNilEvent)

	for _, bad := range []string{"", "intake.booking", "intake.booking.vX", "intake.booking.v0", ".v1"} {
		_, err = NewEnvelope("agg", "", typedEvent(bad))
		assert.True(t, errors.Is(err, ErrBadEventType), "type %q", bad)
	}

	env, err := NewEnvelope("agg", "", typedEvent("intake.session.archived.v12"))
	require.NoError(t, err)
	assert.Equal(t, 12, env.Version)
}

func TestWithOccurredAt(t *testing.T) {
	target := time.Date(2026, 1, 1, 9, 0, 0, 0, time.FixedZone("CST", -6*3600))
	env, err := NewEnvelope("agg", "", BookingConfirmedV1{VisitID: "x"}, WithOccurredAt(target), WithOccurredAt(time.Time{}))
	require.NoError(t, err)
	assert.True(t, env.OccurredAt.Equal(target))
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
}

func TestDecodeEmptyPayload(t *testing.T) {
	var evt BookingConfirmedV1
	assert.Error(t, Envelope{EventType: "intake.booking.confirmed.v1"}.Decode(&evt))
}
