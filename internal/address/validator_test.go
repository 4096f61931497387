package address

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/slots"
	addressvalidation "google.golang.org/api/addressvalidation/v1"
)

func TestParseSuggestion(t *testing.T) {
	got, ok := ParseSuggestion("123 Main Street, San Francisco, CA 94102, USA")
	require.True(t, ok)
	assert.Equal(t, slots.AddressParts{Line1: "123 Main Street", City: "San Francisco", State: "CA", Zip: "94102"}, got)

	_, ok = ParseSuggestion("San Francisco")
	assert.False(t, ok)
}

func TestLocalValidator(t *testing.T) {
	ctx := context.Background()

	res, err := LocalValidator{}.Validate(ctx, slots.AddressParts{Line1: "1 Elm St", City: "Austin", State: "texas", Zip: "78701"})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "TX", res.Standardized.State)

	res, err = LocalValidator{}.Validate(ctx, slots.AddressParts{Line1: "1 Elm St", City: "Austin"})
	require.NoError(t, err)
	assert.False(t, res.Verified)

	_, err = LocalValidator{}.Validate(ctx, slots.AddressParts{})
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

type fakeAPI struct {
	resp *addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse
	err  error
	got  *addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressRequest
}

func (f *fakeAPI) validate(_ context.Context, req *addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressRequest) (*addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestGoogleValidatorVerified(t *testing.T) {
	api := &fakeAPI{resp: &addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse{
		Result: &addressvalidation.GoogleMapsAddressvalidationV1ValidationResult{
			Verdict: &addressvalidation.GoogleMapsAddressvalidationV1Verdict{AddressComplete: true},
			Address: &addressvalidation.GoogleMapsAddressvalidationV1Address{
				FormattedAddress: "123 Main St, San Francisco, CA 94102-1234, USA",
				PostalAddress: &addressvalidation.GoogleTypePostalAddress{
					AddressLines:       []string{"123 Main St"},
					Locality:           "San Francisco",
					AdministrativeArea: "CA",
					PostalCode:         "94102-1234",
				},
			},
		},
	}}
	v := newGoogleValidator(api, nil)

	res, err := v.Validate(context.Background(), slots.AddressParts{Line1: "123 main st", Line2: "Apt 4", City: "san francisco", State: "CA", Zip: "94102"})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "123 Main St", res.Standardized.Line1)
	assert.Equal(t, "Apt 4", res.Standardized.Line2)
	assert.Equal(t, "94102-1234", res.Standardized.Zip)
	assert.Equal(t, []string{"123 main st, Apt 4, san francisco, CA 94102"}, api.got.Address.AddressLines)
	assert.Equal(t, "US", api.got.Address.RegionCode)
}

func TestGoogleValidatorSuggestsCorrection(t *testing.T) {
	api := &fakeAPI{resp: &addressvalidation.GoogleMapsAddressvalidationV1ValidateAddressResponse{
		Result: &addressvalidation.GoogleMapsAddressvalidationV1ValidationResult{
			Verdict: &addressvalidation.GoogleMapsAddressvalidationV1Verdict{AddressComplete: true, HasReplacedComponents: true},
			Address: &addressvalidation.GoogleMapsAddressvalidationV1Address{
				FormattedAddress: "123 Main Street, San Francisco, CA 94102, USA",
			},
		},
	}}
	v := newGoogleValidator(api, nil)

	res, err := v.Validate(context.Background(), slots.AddressParts{Line1: "123 Mian Street", City: "San Francisco", State: "CA", Zip: "94102"})
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, "123 Main Street, San Francisco, CA 94102, USA", res.Suggestion)
	assert.Contains(t, res.Issues, "Some address components were corrected")
}

func TestGoogleValidatorTransportError(t *testing.T) {
	v := newGoogleValidator(&fakeAPI{err: errors.New("connection refused")}, nil)

	res, err := v.Validate(context.Background(), slots.AddressParts{Line1: "1 Elm St", City: "Austin", State: "TX", Zip: "78701"})
	require.Error(t, err)
	assert.False(t, res.Verified)
}

func TestNewGoogleValidatorRequiresKey(t *testing.T) {
	_, err := NewGoogleValidator(context.Background(), " ", nil)
	assert.Error(t, err)
}
