package intake

import (
	"time"

	"github.com/wolfman30/patient-intake/internal/address"
	"github.com/wolfman30/patient-intake/internal/nlu"
	"github.com/wolfman30/patient-intake/internal/slots"
)

const (
	addressVerified   = "verified"
	addressUnverified = "unverified"
	addressError      = "error"
)

func (t *turn) collectAddress() (Prompt, error) {
	res, err := t.extract(slots.AddressSchema)
	if err != nil {
		return Prompt{}, err
	}
	said := stated(res, slots.AddressSchema)

	if t.s.AddressSuggestion != "" && len(said) == 0 {
		intent, err := t.intent()
		if err != nil {
			return Prompt{}, err
		}
		switch intent {
		case nlu.IntentAffirmative:
			if !t.adoptSuggestion() {
				return Prompt{Kind: PromptAddressRetry}, nil
			}
			t.enter(StateConfirmAddress)
			return t.confirmAddressPrompt(""), nil
		case nlu.IntentNegative:
			t.s.AddressSuggestion = ""
			return Prompt{Kind: PromptAddressRetry}, nil
		}
		return Prompt{Kind: PromptAddressRetry, Suggestion: t.s.AddressSuggestion}, nil
	}

	issues := t.issues(res, slots.AddressSchema)
	t.s.Profile.Merge(res, slots.AddressSchema)
	return t.afterAddressInput(issues, len(said) > 0)
}

// afterAddressInput validates a complete address. Each submission spends one
// attempt; once the budget is used up the address is kept unverified.
func (t *turn) afterAddressInput(issues []FieldIssue, submitted bool) (Prompt, error) {
	p := &t.s.Profile
	missing := p.Missing(addressSection.required)
	if len(missing) > 0 || blocked(addressSection, issues) {
		return Prompt{
			Kind:    PromptCollect,
			Section: addressSection.name,
			Fresh:   len(issues) == 0 && !p.Captured(slots.AddressSchema),
			Missing: missing,
			Invalid: issues,
		}, nil
	}
	if !submitted {
		return Prompt{Kind: PromptAddressRetry, Suggestion: t.s.AddressSuggestion}, nil
	}

	vr, verified := t.validateAddress(p.Address())
	if verified {
		p.SetAddress(vr.Standardized, true)
		t.s.AddressAttempts = 0
		t.s.AddressSuggestion = ""
		t.enter(StateConfirmAddress)
		return t.confirmAddressPrompt(""), nil
	}

	t.s.AddressAttempts++
	if t.s.AddressAttempts < t.m.maxAttempts {
		t.s.AddressSuggestion = vr.Suggestion
		t.enter(StateCollectAddress)
		return Prompt{Kind: PromptAddressRetry, Suggestion: vr.Suggestion, Invalid: issues}, nil
	}

	t.m.logger.Info("address kept unverified",
		"session_id", t.s.ID,
		"attempts", t.s.AddressAttempts,
	)
	t.s.AddressAttempts = 0
	t.s.AddressSuggestion = ""
	p.AddressValidated = false
	t.enter(StateConfirmAddress)
	return t.confirmAddressPrompt("I couldn't verify this address, so I'll keep it as you entered it."), nil
}

// validateAddress calls the validator. A transport failure is reported and
// treated as an unverified result.
func (t *turn) validateAddress(a slots.AddressParts) (address.Result, bool) {
	t.enter(StateValidateAddress)
	start := time.Now()
	vr, err := t.m.deps.Address.Validate(t.ctx, a)
	t.observe("validate_address", start, err)
	if err != nil {
		t.m.logger.Warn("address validation unavailable", "session_id", t.s.ID, "error", err)
		t.note(&ExternalServiceError{Service: "address", Err: err})
		t.addressCheck = addressError
		return address.Result{}, false
	}
	if !vr.Verified || !vr.Standardized.Complete() {
		t.addressCheck = addressUnverified
		return vr, false
	}
	t.addressCheck = addressVerified
	return vr, true
}

// adoptSuggestion stores the pending suggestion as a validated address.
func (t *turn) adoptSuggestion() bool {
	parts, ok := address.ParseSuggestion(t.s.AddressSuggestion)
	t.s.AddressSuggestion = ""
	if !ok {
		return false
	}
	before := t.s.Profile.Address()
	t.s.Profile.SetAddress(parts, true)
	t.s.AddressAttempts = 0
	if t.s.PatientID != "" {
		t.stageAddress(before)
	}
	return true
}

func (t *turn) confirmAddressPrompt(notice string) Prompt {
	return Prompt{
		Kind:    PromptConfirmSection,
		Section: addressSection.name,
		Lines:   addressSection.summaryLines(&t.s.Profile),
		Notice:  notice,
	}
}
