package patients

import "errors"

var (
	ErrPatientNotFound = errors.New("patients: patient not found")
	// ErrAmbiguousMatch means more than one stored patient shares the given name and date of birth.
	ErrAmbiguousMatch = errors.New("patients: more than one patient matches")
	ErrNoCriteria     = errors.New("patients: no lookup criteria")
	ErrInvalidPatient = errors.New("patients: first name, last name, date of birth and phone are required")
)
