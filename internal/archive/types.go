package archive

import "time"

// SessionRecord is the scrubbed copy of a finished intake session kept in S3
// for quality review.
type SessionRecord struct {
	Version         string         `json:"version"` // "1.0"
	SessionID       string         `json:"session_id"`
	PhoneHash       string         `json:"phone_hash,omitempty"` // sha256 of phone
	StartedAt       time.Time      `json:"started_at"`
	ArchivedAt      time.Time      `json:"archived_at"`
	DurationSeconds int            `json:"duration_seconds"`
	MessageCount    int            `json:"message_count"`
	Outcome         string         `json:"outcome"` // booked|abandoned|ended
	Context         SessionContext `json:"context"`
	Messages        []Message      `json:"messages"`
}

// SessionContext captures what the session achieved without identifying the patient.
type SessionContext struct {
	PatientType      string     `json:"patient_type,omitempty"` // new|returning
	InsurancePayer   string     `json:"insurance_payer,omitempty"`
	ChiefComplaint   string     `json:"chief_complaint,omitempty"`
	AddressValidated bool       `json:"address_validated"`
	AddressAttempts  int        `json:"address_attempts"`
	ProviderID       string     `json:"provider_id,omitempty"`
	VisitID          string     `json:"visit_id,omitempty"`
	AppointmentAt    *time.Time `json:"appointment_at,omitempty"`
	BookingCompleted bool       `json:"booking_completed"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	Outcome      string `json:"outcome"`
	PatientType  string `json:"patient_type,omitempty"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}
