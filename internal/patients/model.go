package patients

import (
	"strconv"
	"time"
)

// Patient is a stored identity with demographics, address and insurance.
type Patient struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`

	AddressLine1     string `json:"address_line1,omitempty"`
	AddressLine2     string `json:"address_line2,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	ZipCode          string `json:"zip_code,omitempty"`
	AddressValidated bool   `json:"address_validated"`

	InsurancePayer    string `json:"insurance_payer,omitempty"`
	InsurancePlan     string `json:"insurance_plan,omitempty"`
	InsuranceMemberID string `json:"insurance_member_id,omitempty"`
	InsuranceGroupID  string `json:"insurance_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required to re-identify a patient.
func (p Patient) Validate() error {
	if p.FirstName == "" || p.LastName == "" || p.DateOfBirth == "" || p.Phone == "" {
		return ErrInvalidPatient
	}
	return nil
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// trackedFields lists the audited columns in a stable order.
var trackedFields = []struct {
	name string
	get  func(Patient) string
}{
	{"first_name", func(p Patient) string { return p.FirstName }},
	{"last_name", func(p Patient) string { return p.LastName }},
	{"date_of_birth", func(p Patient) string { return p.DateOfBirth }},
	{"phone", func(p Patient) string { return p.Phone }},
	{"email", func(p Patient) string { return p.Email }},
	{"address_line1", func(p Patient) string { return p.AddressLine1 }},
	{"address_line2", func(p Patient) string { return p.AddressLine2 }},
	{"city", func(p Patient) string { return p.City }},
	{"state", func(p Patient) string { return p.State }},
	{"zip_code", func(p Patient) string { return p.ZipCode }},
	{"address_validated", func(p Patient) string { return strconv.FormatBool(p.AddressValidated) }},
	{"insurance_payer", func(p Patient) string { return p.InsurancePayer }},
	{"insurance_plan", func(p Patient) string { return p.InsurancePlan }},
	{"insurance_member_id", func(p Patient) string { return p.InsuranceMemberID }},
	{"insurance_group_id", func(p Patient) string { return p.InsuranceGroupID }},
}

// FieldChange is one differing column between two versions of a patient.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// ChangedFields returns the columns whose value differs between before and after.
func ChangedFields(before, after Patient) []FieldChange {
	var out []FieldChange
	for _, f := range trackedFields {
		oldVal, newVal := f.get(before), f.get(after)
		if oldVal != newVal {
			out = append(out, FieldChange{Field: f.name, OldValue: oldVal, NewValue: newVal})
		}
	}
	return out
}

// initialFields returns the non-empty columns of a newly created patient.
func initialFields(p Patient) []FieldChange {
	var out []FieldChange
	for _, f := range trackedFields {
		v := f.get(p)
		if v == "" || (f.name == "address_validated" && v == "false") {
			continue
		}
		out = append(out, FieldChange{Field: f.name, NewValue: v})
	}
	return out
}

type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeLogEntry is an immutable audit row for one field of one patient.
type ChangeLogEntry struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	Field      string     `json:"field_name"`
	OldValue   string     `json:"old_value"`
	NewValue   string     `json:"new_value"`
	ChangeType ChangeType `json:"change_type"`
	ChangedBy  string     `json:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at"`
}

const VisitStatusScheduled = "scheduled"

// Visit ties a booked appointment to a patient and the reported complaint.
type Visit struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	AppointmentID   string    `json:"appointment_id"`
	ChiefComplaint  string    `json:"chief_complaint"`
	Symptoms        string    `json:"symptoms,omitempty"`
	SymptomDuration string    `json:"symptom_duration,omitempty"`
	Severity        int       `json:"severity,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Criteria holds the identifiers a returning patient may give. Empty values are skipped.
type Criteria struct {
	Phone       string
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth string
}

func (c Criteria) Empty() bool {
	return c.Phone == "" && c.Email == "" && (c.FirstName == "" || c.LastName == "" || c.DateOfBirth == "")
}

// Summary is the returning-patient view shown to staff.
type Summary struct {
	Patient          Patient  `json:"patient"`
	VisitCount       int      `json:"visit_count"`
	RecentComplaints []string `json:"recent_complaints"`
}
