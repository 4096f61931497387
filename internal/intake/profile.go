package intake

import (
	"strconv"

	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/internal/slots"
)

// Profile accumulates the values collected so far. An empty string means the
// field has not been captured.
type Profile struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`

	InsurancePayer    string `json:"insurance_payer,omitempty"`
	InsurancePlan     string `json:"insurance_plan,omitempty"`
	InsuranceMemberID string `json:"insurance_member_id,omitempty"`
	InsuranceGroupID  string `json:"insurance_group_id,omitempty"`

	AddressLine1     string `json:"address_line1,omitempty"`
	AddressLine2     string `json:"address_line2,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	ZipCode          string `json:"zip_code,omitempty"`
	AddressValidated bool   `json:"address_validated"`

	ChiefComplaint  string `json:"chief_complaint,omitempty"`
	Symptoms        string `json:"symptoms,omitempty"`
	SymptomDuration string `json:"symptom_duration,omitempty"`
	Severity        string `json:"severity,omitempty"`
}

func (p *Profile) ref(f slots.Field) *string {
	switch f {
	case slots.FirstName:
		return &p.FirstName
	case slots.LastName:
		return &p.LastName
	case slots.DateOfBirth:
		return &p.DateOfBirth
	case slots.Phone:
		return &p.Phone
	case slots.Email:
		return &p.Email
	case slots.InsurancePayer:
		return &p.InsurancePayer
	case slots.InsurancePlan:
		return &p.InsurancePlan
	case slots.InsuranceMemberID:
		return &p.InsuranceMemberID
	case slots.InsuranceGroupID:
		return &p.InsuranceGroupID
	case slots.AddressLine1:
		return &p.AddressLine1
	case slots.AddressLine2:
		return &p.AddressLine2
	case slots.City:
		return &p.City
	case slots.State:
		return &p.State
	case slots.ZipCode:
		return &p.ZipCode
	case slots.ChiefComplaint:
		return &p.ChiefComplaint
	case slots.Symptoms:
		return &p.Symptoms
	case slots.SymptomDuration:
		return &p.SymptomDuration
	case slots.Severity:
		return &p.Severity
	}
	return nil
}

func (p *Profile) Get(f slots.Field) string {
	if r := p.ref(f); r != nil {
		return *r
	}
	return ""
}

func (p *Profile) Set(f slots.Field, v string) {
	if r := p.ref(f); r != nil {
		*r = v
	}
	if isAddressField(f) {
		p.AddressValidated = false
	}
}

func (p *Profile) Clear(fields ...slots.Field) {
	for _, f := range fields {
		p.Set(f, "")
	}
}

// Merge copies every valid extraction in schema into the profile and returns
// the fields whose value changed. Absent and invalid extractions never
// overwrite a captured value.
func (p *Profile) Merge(res slots.Result, schema slots.Schema) []slots.Field {
	var changed []slots.Field
	for _, f := range schema {
		v, ok := res.Valid(f)
		if !ok || p.Get(f) == v {
			continue
		}
		p.Set(f, v)
		changed = append(changed, f)
	}
	return changed
}

// Missing lists the required fields that have no value yet.
func (p *Profile) Missing(required []slots.Field) []slots.Field {
	var out []slots.Field
	for _, f := range required {
		if p.Get(f) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Captured reports whether any field of schema has a value.
func (p *Profile) Captured(schema slots.Schema) bool {
	for _, f := range schema {
		if p.Get(f) != "" {
			return true
		}
	}
	return false
}

func (p *Profile) Address() slots.AddressParts {
	return slots.AddressParts{
		Line1: p.AddressLine1,
		Line2: p.AddressLine2,
		City:  p.City,
		State: p.State,
		Zip:   p.ZipCode,
	}
}

// SetAddress replaces every address component and the validated flag.
func (p *Profile) SetAddress(a slots.AddressParts, validated bool) {
	p.AddressLine1, p.AddressLine2 = a.Line1, a.Line2
	p.City, p.State, p.ZipCode = a.City, a.State, a.Zip
	p.AddressValidated = validated
}

// SeverityScore returns the 1-10 severity, or 0 when not given.
func (p *Profile) SeverityScore() int {
	n, err := strconv.Atoi(p.Severity)
	if err != nil {
		return 0
	}
	return n
}

// Patient converts the demographic part of the profile into a patient record.
func (p *Profile) Patient(id string) patients.Patient {
	return patients.Patient{
		ID:                id,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		DateOfBirth:       p.DateOfBirth,
		Phone:             p.Phone,
		Email:             p.Email,
		AddressLine1:      p.AddressLine1,
		AddressLine2:      p.AddressLine2,
		City:              p.City,
		State:             p.State,
		ZipCode:           p.ZipCode,
		AddressValidated:  p.AddressValidated,
		InsurancePayer:    p.InsurancePayer,
		InsurancePlan:     p.InsurancePlan,
		InsuranceMemberID: p.InsuranceMemberID,
		InsuranceGroupID:  p.InsuranceGroupID,
	}
}

// ProfileFromPatient loads a stored patient into a fresh profile.
func ProfileFromPatient(pt patients.Patient) Profile {
	return Profile{
		FirstName:         pt.FirstName,
		LastName:          pt.LastName,
		DateOfBirth:       pt.DateOfBirth,
		Phone:             pt.Phone,
		Email:             pt.Email,
		InsurancePayer:    pt.InsurancePayer,
		InsurancePlan:     pt.InsurancePlan,
		InsuranceMemberID: pt.InsuranceMemberID,
		InsuranceGroupID:  pt.InsuranceGroupID,
		AddressLine1:      pt.AddressLine1,
		AddressLine2:      pt.AddressLine2,
		City:              pt.City,
		State:             pt.State,
		ZipCode:           pt.ZipCode,
		AddressValidated:  pt.AddressValidated,
	}
}

func isAddressField(f slots.Field) bool {
	return slots.AddressSchema.Has(f)
}
