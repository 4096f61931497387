// Package address verifies postal addresses collected during intake.
package address

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/patient-intake/internal/slots"
)

// ErrEmptyAddress is returned when there is nothing to validate.
var ErrEmptyAddress = errors.New("address: address cannot be empty")

// Result is a validation outcome. Standardized is set when Verified is true;
// Suggestion may be set when it is not.
type Result struct {
	Verified     bool
	Standardized slots.AddressParts
	Suggestion   string
	Issues       []string
}

// Validator checks an address. An error means the service could not be
// reached; callers treat it as an unverified result.
type Validator interface {
	Validate(ctx context.Context, addr slots.AddressParts) (Result, error)
}

// ParseSuggestion splits a suggested address such as
// "123 Main Street, San Francisco, CA 94102, USA" into normalized components.
// ok is false when a required component is missing or invalid.
func ParseSuggestion(suggestion string) (slots.AddressParts, bool) {
	parts := slots.ParseAddress(suggestion)
	return normalizeParts(parts)
}

func normalizeParts(parts slots.AddressParts) (slots.AddressParts, bool) {
	if !parts.Complete() {
		return parts, false
	}
	state, err := slots.NormalizeState(parts.State)
	if err != nil {
		return parts, false
	}
	zip, err := slots.NormalizeZip(parts.Zip)
	if err != nil {
		return parts, false
	}
	parts.State, parts.Zip = state, zip
	parts.Line1 = strings.TrimSpace(parts.Line1)
	parts.Line2 = strings.TrimSpace(parts.Line2)
	parts.City = strings.TrimSpace(parts.City)
	return parts, true
}

// LocalValidator verifies addresses offline by checking that every required
// component is present and well formed. It is used when no Google API key is
// configured.
type LocalValidator struct{}

func (LocalValidator) Validate(_ context.Context, addr slots.AddressParts) (Result, error) {
	if addr == (slots.AddressParts{}) {
		return Result{}, ErrEmptyAddress
	}
	norm, ok := normalizeParts(addr)
	if !ok {
		return Result{Issues: []string{"Address is incomplete"}}, nil
	}
	return Result{Verified: true, Standardized: norm}, nil
}
