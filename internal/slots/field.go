// Package slots turns free text into normalized intake field values.
package slots

// Field names a piece of information collected during intake.
type Field string

const (
	FirstName   Field = "first_name"
	LastName    Field = "last_name"
	DateOfBirth Field = "date_of_birth"
	Phone       Field = "phone"
	Email       Field = "email"

	InsurancePayer    Field = "insurance_payer"
	InsurancePlan     Field = "insurance_plan"
	InsuranceMemberID Field = "insurance_member_id"
	InsuranceGroupID  Field = "insurance_group_id"

	AddressLine1 Field = "address_line1"
	AddressLine2 Field = "address_line2"
	City         Field = "city"
	State        Field = "state"
	ZipCode      Field = "zip_code"

	ChiefComplaint  Field = "chief_complaint"
	Symptoms        Field = "symptoms"
	SymptomDuration Field = "symptom_duration"
	Severity        Field = "severity"
)

var labels = map[Field]string{
	FirstName:         "first name",
	LastName:          "last name",
	DateOfBirth:       "date of birth",
	Phone:             "phone number",
	Email:             "email",
	InsurancePayer:    "insurance provider",
	InsurancePlan:     "insurance plan",
	InsuranceMemberID: "member ID",
	InsuranceGroupID:  "group ID",
	AddressLine1:      "street address",
	AddressLine2:      "apartment or suite",
	City:              "city",
	State:             "state",
	ZipCode:           "ZIP code",
	ChiefComplaint:    "reason for visit",
	Symptoms:          "symptoms",
	SymptomDuration:   "how long you've had symptoms",
	Severity:          "severity",
}

// Label is the user-facing name of the field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

var constraints = map[Field]string{
	FirstName:   "should contain letters only",
	LastName:    "should contain letters only",
	DateOfBirth: "must be a real date in the past, for example 03/15/1985",
	Phone:       "must be a 10-digit US phone number",
	Email:       "must look like name@example.com",
	State:       "must be a US state name or two-letter code",
	ZipCode:     "must be a 5-digit ZIP code",
	Severity:    "must be a number from 1 to 10",
}

// Constraint describes in plain words what a valid value for f looks like.
func (f Field) Constraint() string {
	if c, ok := constraints[f]; ok {
		return c
	}
	return "could not be understood"
}

// Schema is the ordered set of fields collected in one step.
type Schema []Field

var (
	PatientSchema   = Schema{FirstName, LastName, DateOfBirth, Phone, Email}
	InsuranceSchema = Schema{InsurancePayer, InsurancePlan, InsuranceMemberID, InsuranceGroupID}
	AddressSchema   = Schema{AddressLine1, AddressLine2, City, State, ZipCode}
	MedicalSchema   = Schema{ChiefComplaint, Symptoms, SymptomDuration, Severity}

	// ProfileSchema covers every stored demographic field and is used for
	// returning-patient updates.
	ProfileSchema = Schema{
		FirstName, LastName, DateOfBirth, Phone, Email,
		InsurancePayer, InsurancePlan, InsuranceMemberID, InsuranceGroupID,
		AddressLine1, AddressLine2, City, State, ZipCode,
	}
)

func (s Schema) Has(f Field) bool {
	for _, candidate := range s {
		if candidate == f {
			return true
		}
	}
	return false
}
