// Package appointments lists open provider time slots and books them atomically.
package appointments

import (
	"errors"
	"time"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

// Slot is a bookable provider time window. A slot moves from available to
// booked at most once.
type Slot struct {
	ID              string     `json:"id"`
	ProviderID      string     `json:"provider_id"`
	StartsAt        time.Time  `json:"starts_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	PatientID       string     `json:"patient_id,omitempty"`
	VisitID         string     `json:"visit_id,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	BookedAt        *time.Time `json:"booked_at,omitempty"`
	// BookingKey identifies the conversation that claimed the slot.
	BookingKey      string     `json:"-"`
}

// Label renders the slot start the way it is offered to patients, e.g.
// "Tuesday, March 3 at 9:30 AM".
func (s Slot) Label(loc *time.Location) string {
	t := s.StartsAt
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("Monday, January 2 at 3:04 PM")
}

var (
	ErrSlotNotFound = errors.New("appointments: slot not found")
	// ErrSlotUnavailable means the slot was booked by someone else first.
	ErrSlotUnavailable = errors.New("appointments: slot is no longer available")
)
