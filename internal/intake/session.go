package intake

import (
	"time"

	"github.com/wolfman30/patient-intake/internal/slots"
)

// ProviderOption is a provider offered to the user, in listed order.
type ProviderOption struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Specialty string  `json:"specialty"`
	Rating    float64 `json:"rating"`
}

// SlotOption is an appointment time offered to the user, in listed order.
type SlotOption struct {
	ID       string    `json:"id"`
	StartsAt time.Time `json:"starts_at"`
	Label    string    `json:"label"`
}

// Booking records a committed appointment.
type Booking struct {
	SlotID       string    `json:"slot_id"`
	PatientID    string    `json:"patient_id"`
	VisitID      string    `json:"visit_id"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	StartsAt     time.Time `json:"starts_at"`
	Label        string    `json:"label"`
	PatientName  string    `json:"patient_name"`
	Email        string    `json:"email,omitempty"`
	Complaint    string    `json:"chief_complaint"`
	Changes      int       `json:"changes_logged"`
}

// Session is the mutable record of one intake conversation. Only Machine
// changes it, one turn at a time.
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	Profile          Profile       `json:"profile"`
	PatientID        string        `json:"patient_id,omitempty"`
	ClaimedReturning bool          `json:"claimed_returning,omitempty"`
	PendingUpdates   []slots.Field `json:"pending_updates,omitempty"`

	AddressAttempts   int    `json:"address_attempts"`
	AddressSuggestion string `json:"address_suggestion,omitempty"`

	Providers  []ProviderOption `json:"providers,omitempty"`
	ProviderID string           `json:"provider_id,omitempty"`
	Slots      []SlotOption     `json:"slots,omitempty"`
	SlotID     string           `json:"slot_id,omitempty"`

	Booking   *Booking `json:"booking,omitempty"`
	Abandoned bool     `json:"abandoned,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, State: StateGreet, CreatedAt: now, UpdatedAt: now}
}

// Clone returns a deep copy so a failed turn can be discarded.
func (s *Session) Clone() *Session {
	cp := *s
	cp.PendingUpdates = append([]slots.Field(nil), s.PendingUpdates...)
	cp.Providers = append([]ProviderOption(nil), s.Providers...)
	cp.Slots = append([]SlotOption(nil), s.Slots...)
	if s.Booking != nil {
		b := *s.Booking
		cp.Booking = &b
	}
	return &cp
}

func (s *Session) providerName(id string) string {
	for _, p := range s.Providers {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

func (s *Session) slot(id string) (SlotOption, bool) {
	for _, sl := range s.Slots {
		if sl.ID == id {
			return sl, true
		}
	}
	return SlotOption{}, false
}

func (s *Session) addPending(fields ...slots.Field) {
	for _, f := range fields {
		seen := false
		for _, p := range s.PendingUpdates {
			if p == f {
				seen = true
				break
			}
		}
		if !seen {
			s.PendingUpdates = append(s.PendingUpdates, f)
		}
	}
}

// reset drops everything collected. The booking reference and patient id stay
// so the finished session can still be inspected.
func (s *Session) reset() {
	s.Profile = Profile{}
	s.ClaimedReturning = false
	s.PendingUpdates = nil
	s.AddressAttempts = 0
	s.AddressSuggestion = ""
	s.Providers = nil
	s.Slots = nil
}
