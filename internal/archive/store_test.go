package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/webchat"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{bucket: *input.Bucket, key: *input.Key, body: body})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeTranscripts struct {
	lines []webchat.Message
	err   error
}

func (f fakeTranscripts) List(context.Context, string, int64) ([]webchat.Message, error) {
	return f.lines, f.err
}

var archivedAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newTestStore(client S3API, transcripts TranscriptSource) *Store {
	store := NewStore(client, "intake-archive", transcripts, nil)
	store.now = func() time.Time { return archivedAt }
	return store
}

func bookedSession() *intake.Session {
	sess := intake.NewSession("sess-42", archivedAt.Add(-5*time.Minute))
	sess.State = intake.StateEnd
	sess.Profile.FirstName = "Jane"
	sess.Profile.Phone = "5551234567"
	sess.Profile.InsurancePayer = "Aetna"
	sess.Profile.AddressValidated = true
	sess.Booking = &intake.Booking{
		VisitID:      "visit-1",
		ProviderID:   "prov-1",
		ProviderName: "Dr. Sarah Chen",
		StartsAt:     archivedAt.Add(24 * time.Hour),
		Complaint:    "headache",
	}
	return sess
}

func TestStoreArchiveSession(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock, fakeTranscripts{lines: []webchat.Message{
		{Role: "user", Text: "Jane Doe, 03/15/1985, jane@example.com", Timestamp: archivedAt},
		{Role: "assistant", Text: "Thanks!", Timestamp: archivedAt},
	}})

	require.NoError(t, store.ArchiveSession(context.Background(), bookedSession()))
	require.Len(t, mock.putCalls, 2)

	assert.Equal(t, "intake-archive", mock.putCalls[0].bucket)
	assert.Equal(t, "sessions/v1/by-date/2026/03/02/sess-42.json", mock.putCalls[0].key)

	var decoded SessionRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "booked", decoded.Outcome)
	assert.Equal(t, "new", decoded.Context.PatientType)
	assert.Equal(t, "visit-1", decoded.Context.VisitID)
	assert.Equal(t, "headache", decoded.Context.ChiefComplaint)
	assert.True(t, decoded.Context.BookingCompleted)
	assert.Equal(t, 300, decoded.DurationSeconds)
	assert.Equal(t, HashPhone("5551234567"), decoded.PhoneHash)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, "Jane Doe, [DATE], [EMAIL]", decoded.Messages[0].Content)
	assert.NotContains(t, string(mock.putCalls[0].body), "5551234567")

	assert.Equal(t, "sessions/v1/manifests/2026-03.jsonl", mock.putCalls[1].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "sess-42", entry.SessionID)
	assert.Equal(t, "booked", entry.Outcome)
	assert.Equal(t, 2, entry.MessageCount)
}

func TestStoreArchiveAbandonedWithoutTranscript(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock, fakeTranscripts{err: errors.New("redis down")})
	sess := intake.NewSession("sess-7", archivedAt)
	sess.State = intake.StateEnd
	sess.Abandoned = true

	require.NoError(t, store.ArchiveSession(context.Background(), sess))
	var decoded SessionRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "abandoned", decoded.Outcome)
	assert.Empty(t, decoded.Context.PatientType)
	assert.Empty(t, decoded.Messages)
}

func TestStoreDisabled(t *testing.T) {
	store := NewStore(nil, "", nil, nil)
	assert.False(t, store.Enabled())
	assert.NoError(t, store.ArchiveSession(context.Background(), bookedSession()))

	var nilStore *Store
	assert.False(t, nilStore.Enabled())
}

func TestStoreManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock, nil)

	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-1", Outcome: "booked"}))
	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-2", Outcome: "abandoned"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestStoreManifestReadFailureKeepsManifest(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("access denied")
	store := newTestStore(mock, nil)

	err := store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-1"})
	assert.Error(t, err)
	assert.Empty(t, mock.putCalls)
}
