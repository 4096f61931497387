package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/patient-intake/internal/slots"
	"github.com/wolfman30/patient-intake/pkg/logging"
	addressvalidation "google.golang.org/api/addressvalidation/v1"
	"google.golang.org/api/option"
)

// validateAPI is the part of the generated client the validator calls.
type validateAPI interface {
	validate(ctx context.Context, req *addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressRequest) (*addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse, error)
}

type serviceAPI struct {
	svc *addressvalidation.Service
}

func (s serviceAPI) validate(ctx context.Context, req *addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressRequest) (*addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse, error) {
	return s.svc.V1.ValidateAddress(req).Context(ctx).Do()
}

// GoogleValidator calls the Google Maps Address Validation API.
type GoogleValidator struct {
	api    validateAPI
	region string
	logger *logging.Logger
}

// NewGoogleValidator creates a validator authenticated with an API key.
func NewGoogleValidator(ctx context.Context, apiKey string, logger *logging.Logger) (*GoogleValidator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("address: google api key required")
	}
	svc, err := addressvalidation.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("address: create google client: %w", err)
	}
	return newGoogleValidator(serviceAPI{svc: svc}, logger), nil
}

func newGoogleValidator(api validateAPI, logger *logging.Logger) *GoogleValidator {
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleValidator{api: api, region: "US", logger: logger}
}

func (v *GoogleValidator) Validate(ctx context.Context, addr slots.AddressParts) (Result, error) {
	line := slots.FormatAddress(addr)
	if line == "" {
		return Result{}, ErrEmptyAddress
	}

	resp, err := v.api.validate(ctx, &addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressRequest{
		Address: &addressvalidation.GoogleTypePostalAddress{
			AddressLines: []string{line},
			RegionCode:   v.region,
		},
	})
	if err != nil {
		v.logger.Warn("address validation request failed", "error", err)
		return Result{}, fmt.Errorf("address: validate: %w", err)
	}
	if resp == nil || resp.Result == nil {
		return Result{}, fmt.Errorf("address: validate: unexpected response format")
	}

	res := resp.Result
	var (
		issues    []string
		formatted string
		postal    *addressvalidation.GoogleTypePostalAddress
	)
	verdict := res.Verdict
	if verdict == nil {
		verdict = &addressvalidation.GoogleMapsAddressvalidationV1Verdict{}
	}
	if !verdict.AddressComplete {
		issues = append(issues, "Address is incomplete")
	}
	if verdict.HasUnconfirmedComponents {
		issues = append(issues, "Some address components could not be confirmed")
	}
	if verdict.HasReplacedComponents {
		issues = append(issues, "Some address components were corrected")
	}
	if res.Address != nil {
		formatted = res.Address.FormattedAddress
		postal = res.Address.PostalAddress
	}

	if len(issues) > 0 {
		return Result{Suggestion: formatted, Issues: issues}, nil
	}

	standardized, ok := fromPostal(postal)
	if !ok {
		standardized, ok = ParseSuggestion(formatted)
	}
	if !ok {
		return Result{Suggestion: formatted, Issues: []string{"Address could not be standardized"}}, nil
	}
	if standardized.Line2 == "" {
		standardized.Line2 = addr.Line2
	}
	return Result{Verified: true, Standardized: standardized}, nil
}

func fromPostal(p *addressvalidation.GoogleTypePostalAddress) (slots.AddressParts, bool) {
	if p == nil || len(p.AddressLines) == 0 {
		return slots.AddressParts{}, false
	}
	parts := slots.AddressParts{
		Line1: p.AddressLines[0],
		City:  p.Locality,
		State: p.AdministrativeArea,
		Zip:   p.PostalCode,
	}
	if len(p.AddressLines) > 1 {
		parts.Line2 = strings.Join(p.AddressLines[1:], ", ")
	}
	return normalizeParts(parts)
}
