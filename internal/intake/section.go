package intake

import (
	"fmt"

	"github.com/wolfman30/patient-intake/internal/slots"
)

// section is one collect-then-confirm block of the flow.
type section struct {
	name     string
	schema   slots.Schema
	required []slots.Field
	collect  State
	confirm  State
	next     State
}

var (
	patientSection = section{
		name:     "patient",
		schema:   slots.PatientSchema,
		required: []slots.Field{slots.FirstName, slots.LastName, slots.DateOfBirth, slots.Phone},
		collect:  StateCollectPatient,
		confirm:  StateConfirmPatient,
		next:     StateCollectInsurance,
	}
	insuranceSection = section{
		name:     "insurance",
		schema:   slots.InsuranceSchema,
		required: []slots.Field{slots.InsurancePayer, slots.InsuranceMemberID},
		collect:  StateCollectInsurance,
		confirm:  StateConfirmInsurance,
		next:     StateCollectAddress,
	}
	addressSection = section{
		name:     "address",
		schema:   slots.AddressSchema,
		required: []slots.Field{slots.AddressLine1, slots.City, slots.State, slots.ZipCode},
		collect:  StateCollectAddress,
		confirm:  StateConfirmAddress,
		next:     StateCollectMedical,
	}
	medicalSection = section{
		name:     "medical",
		schema:   slots.MedicalSchema,
		required: []slots.Field{slots.ChiefComplaint},
		collect:  StateCollectMedical,
	}
)

// sectionFor returns the section collected or confirmed in state s.
func sectionFor(s State) (section, bool) {
	for _, sec := range []section{patientSection, insuranceSection, addressSection, medicalSection} {
		if sec.collect == s || (sec.confirm != "" && sec.confirm == s) {
			return sec, true
		}
	}
	return section{}, false
}

func (sec section) isRequired(f slots.Field) bool {
	for _, r := range sec.required {
		if r == f {
			return true
		}
	}
	return false
}

// summaryLines renders the captured section values for a confirmation prompt.
func (sec section) summaryLines(p *Profile) []string {
	if sec.name == addressSection.name {
		line := slots.FormatAddress(p.Address())
		if !p.AddressValidated {
			line += " (not verified)"
		}
		return []string{"Address: " + line}
	}
	var lines []string
	for _, f := range sec.schema {
		if v := p.Get(f); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", capitalize(f.Label()), v))
		}
	}
	return lines
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
