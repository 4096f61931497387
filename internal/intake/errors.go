package intake

import (
	"errors"
	"fmt"

	"github.com/wolfman30/patient-intake/internal/slots"
)

var (
	ErrSessionNotFound = errors.New("intake: session not found")
	ErrSessionEnded    = errors.New("intake: session has ended")
	// ErrVersionConflict means another writer saved the session first.
	ErrVersionConflict = errors.New("intake: session was modified concurrently")
)

// ValidationError is a stated value that failed its field rule.
type ValidationError struct {
	Field  slots.Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intake: invalid %s: %s", e.Field, e.Reason)
}

// AmbiguousMatchError means several stored patients fit the identifiers given.
type AmbiguousMatchError struct{}

func (e *AmbiguousMatchError) Error() string {
	return "intake: more than one patient matches"
}

// NotFoundError reports a missing patient, provider or availability.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("intake: no %s found", e.What)
}

// ExternalServiceError wraps a failed call to the understanding or address service.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("intake: %s service failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// SlotUnavailableError means the chosen slot was booked by someone else first.
type SlotUnavailableError struct {
	SlotID string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("intake: slot %s is no longer available", e.SlotID)
}

// PersistenceError is a failed read or write against the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("intake: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorKind names the category of err for API responses and metrics.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		ambiguous  *AmbiguousMatchError
		notFound   *NotFoundError
		external   *ExternalServiceError
		slot       *SlotUnavailableError
		persist    *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &ambiguous):
		return "ambiguous_match"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &external):
		return "external_service"
	case errors.As(err, &slot):
		return "slot_unavailable"
	case errors.As(err, &persist):
		return "persistence"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionEnded):
		return "session_ended"
	}
	return "internal"
}
