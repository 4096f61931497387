package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/webchat"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

const recordVersion = "1.0"

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// TranscriptSource supplies the chat lines of a session. Optional.
type TranscriptSource interface {
	List(ctx context.Context, sessionID string, limit int64) ([]webchat.Message, error)
}

// Store archives finished intake sessions to S3.
type Store struct {
	bucket      string
	s3Client    S3API
	transcripts TranscriptSource
	logger      *logging.Logger
	now         func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, transcripts TranscriptSource, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:      bucket,
		s3Client:    s3Client,
		transcripts: transcripts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveSession scrubs the session and its transcript and writes the record
// to S3. It satisfies intake.Archiver.
func (s *Store) ArchiveSession(ctx context.Context, sess *intake.Session) error {
	if !s.Enabled() || sess == nil {
		return nil
	}
	record := BuildRecord(sess, s.now())
	if s.transcripts != nil {
		lines, err := s.transcripts.List(ctx, sess.ID, 0)
		if err != nil {
			s.logger.Warn("archive transcript unavailable", "session_id", sess.ID, "error", err)
		}
		for _, line := range lines {
			record.Messages = append(record.Messages, Message{Role: line.Role, Content: line.Text, Timestamp: line.Timestamp})
		}
		ScrubMessages(record.Messages)
		record.MessageCount = len(record.Messages)
	}
	return s.put(ctx, record)
}

// BuildRecord copies the non-identifying parts of a session into a record.
func BuildRecord(sess *intake.Session, now time.Time) *SessionRecord {
	record := &SessionRecord{
		Version:    recordVersion,
		SessionID:  sess.ID,
		StartedAt:  sess.CreatedAt,
		ArchivedAt: now,
		Outcome:    outcomeOf(sess),
		Messages:   []Message{},
		Context: SessionContext{
			InsurancePayer:   sess.Profile.InsurancePayer,
			ChiefComplaint:   ScrubPII(sess.Profile.ChiefComplaint),
			AddressValidated: sess.Profile.AddressValidated,
			AddressAttempts:  sess.AddressAttempts,
			ProviderID:       sess.ProviderID,
		},
	}
	if !sess.CreatedAt.IsZero() && now.After(sess.CreatedAt) {
		record.DurationSeconds = int(now.Sub(sess.CreatedAt).Seconds())
	}
	if sess.Profile.Phone != "" {
		record.PhoneHash = HashPhone(sess.Profile.Phone)
	}
	switch {
	case sess.ClaimedReturning:
		record.Context.PatientType = "returning"
	case sess.Booking != nil:
		record.Context.PatientType = "new"
	}
	if b := sess.Booking; b != nil {
		startsAt := b.StartsAt
		record.Context.BookingCompleted = true
		record.Context.VisitID = b.VisitID
		record.Context.ProviderID = b.ProviderID
		record.Context.AppointmentAt = &startsAt
		if record.Context.ChiefComplaint == "" {
			record.Context.ChiefComplaint = ScrubPII(b.Complaint)
		}
	}
	return record
}

func outcomeOf(sess *intake.Session) string {
	switch {
	case sess.Booking != nil:
		return "booked"
	case sess.Abandoned:
		return "abandoned"
	default:
		return "ended"
	}
}

func (s *Store) put(ctx context.Context, record *SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	at := record.ArchivedAt
	s3Key := fmt.Sprintf("sessions/v1/by-date/%d/%02d/%02d/%s.json",
		at.Year(), at.Month(), at.Day(), record.SessionID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived intake session",
		"session_id", record.SessionID,
		"s3_key", s3Key,
		"outcome", record.Outcome,
		"message_count", record.MessageCount,
	)

	entry := ManifestEntry{
		SessionID:    record.SessionID,
		S3Key:        s3Key,
		Outcome:      record.Outcome,
		PatientType:  record.Context.PatientType,
		ArchivedAt:   at.Format(time.RFC3339),
		MessageCount: record.MessageCount,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "session_id", record.SessionID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file with a
// read-modify-write, since S3 has no append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now()
	manifestKey := fmt.Sprintf("sessions/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

var _ intake.Archiver = (*Store)(nil)
