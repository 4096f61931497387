package events

import "time"

// BookingConfirmedV1 is published once per committed appointment. It carries
// identifiers only; consumers look patient details up by id.
type BookingConfirmedV1 struct {
	VisitID       string    `json:"visit_id"`
	PatientID     string    `json:"patient_id"`
	ProviderID    string    `json:"provider_id"`
	SlotID        string    `json:"slot_id"`
	StartsAt      time.Time `json:"starts_at"`
	ChangesLogged int       `json:"changes_logged"`
	BookedAt      time.Time `json:"booked_at"`
}

func (BookingConfirmedV1) EventType() string { return "intake.booking.confirmed.v1" }
