package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/slots"
)

func TestEveryPromptKindRenders(t *testing.T) {
	r := NewTemplateRenderer()
	kinds := []PromptKind{
		PromptGreeting, PromptAskStatus, PromptIdentify, PromptCollect, PromptConfirmSection,
		PromptAddressRetry, PromptReviewProfile, PromptNoProviders, PromptChooseProvider,
		PromptChooseTime, PromptConfirmBooking, PromptBooked, PromptAbandoned, PromptClarify,
		PromptTurnFailed, PromptSessionFinished,
	}
	for _, kind := range kinds {
		p := Prompt{Kind: kind, Section: "patient", Booking: &Booking{ProviderName: "Dr. Chen", Label: "Tuesday, March 3 at 9:00 AM", VisitID: "v-1"}}
		out, err := r.Render(p)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, out, kind)
	}
}

func TestRenderCollectListsMissingAndInvalid(t *testing.T) {
	r := NewTemplateRenderer()
	out, err := r.Render(Prompt{
		Kind:    PromptCollect,
		Section: "patient",
		Missing: []slots.Field{slots.DateOfBirth, slots.Phone},
		Invalid: []FieldIssue{{Field: slots.Phone, Label: "phone number", Value: "555", Constraint: slots.Phone.Constraint()}},
	})
	require.NoError(t, err)
	assert.Equal(t, `The phone number "555" must be a 10-digit US phone number. I still need your date of birth and phone number.`, out)
}

func TestRenderFreshCollectUsesSectionIntro(t *testing.T) {
	out, err := NewTemplateRenderer().Render(Prompt{Kind: PromptCollect, Section: "address", Fresh: true})
	require.NoError(t, err)
	assert.Equal(t, sectionIntros["address"], out)
}

func TestRenderChooseProviderNumbersOptions(t *testing.T) {
	out, err := NewTemplateRenderer().Render(Prompt{
		Kind: PromptChooseProvider,
		Providers: []ProviderOption{
			{Name: "Dr. Sarah Chen", Specialty: "Neurology", Rating: 4.9},
			{Name: "Dr. Luis Ortiz", Specialty: "Family Medicine", Rating: 4.5},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "1. Dr. Sarah Chen (Neurology, rated 4.9)")
	assert.Contains(t, out, "2. Dr. Luis Ortiz (Family Medicine, rated 4.5)")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := NewTemplateRenderer().Render(Prompt{Kind: "nope"})
	assert.Error(t, err)
}

func TestJoinWords(t *testing.T) {
	assert.Equal(t, "", joinWords(nil))
	assert.Equal(t, "a", joinWords([]string{"a"}))
	assert.Equal(t, "a and b", joinWords([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinWords([]string{"a", "b", "c"}))
}
