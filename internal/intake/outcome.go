package intake

import "github.com/wolfman30/patient-intake/internal/slots"

// PromptKind selects the reply template.
type PromptKind string

const (
	PromptGreeting        PromptKind = "greeting"
	PromptAskStatus       PromptKind = "ask_status"
	PromptIdentify        PromptKind = "identify"
	PromptCollect         PromptKind = "collect"
	PromptConfirmSection  PromptKind = "confirm_section"
	PromptAddressRetry    PromptKind = "address_retry"
	PromptReviewProfile   PromptKind = "review_profile"
	PromptNoProviders     PromptKind = "no_providers"
	PromptChooseProvider  PromptKind = "choose_provider"
	PromptChooseTime      PromptKind = "choose_time"
	PromptConfirmBooking  PromptKind = "confirm_booking"
	PromptBooked          PromptKind = "booked"
	PromptAbandoned       PromptKind = "abandoned"
	PromptClarify         PromptKind = "clarify"
	PromptTurnFailed      PromptKind = "turn_failed"
	PromptSessionFinished PromptKind = "session_finished"
)

// FieldIssue is a stated value that failed validation, in user terms.
type FieldIssue struct {
	Field      slots.Field `json:"field"`
	Label      string      `json:"label"`
	Value      string      `json:"value"`
	Constraint string      `json:"constraint"`
}

// Prompt describes the reply without its wording. Renderer turns it into text.
type Prompt struct {
	Kind    PromptKind    `json:"kind"`
	Section string        `json:"section,omitempty"`
	Fresh   bool          `json:"fresh,omitempty"`
	Missing []slots.Field `json:"missing,omitempty"`
	Invalid []FieldIssue  `json:"invalid,omitempty"`
	Title   string        `json:"title,omitempty"`
	Lines   []string      `json:"lines,omitempty"`
	Notice  string        `json:"notice,omitempty"`
	// Suggestion is a corrected address offered by the validator.
	Suggestion string           `json:"suggestion,omitempty"`
	Providers  []ProviderOption `json:"providers,omitempty"`
	Slots      []SlotOption     `json:"slots,omitempty"`
	Booking    *Booking         `json:"booking,omitempty"`
}

// MissingLabels returns the user-facing names of the missing fields.
func (p Prompt) MissingLabels() []string {
	out := make([]string, 0, len(p.Missing))
	for _, f := range p.Missing {
		out = append(out, f.Label())
	}
	return out
}

// Outcome is the result of one turn.
type Outcome struct {
	SessionID string `json:"session_id"`
	State     State  `json:"state"`
	// Path lists every state entered during the turn, in order, ending with State.
	Path      []State  `json:"path,omitempty"`
	Prompt    Prompt   `json:"prompt"`
	Reply     string   `json:"reply"`
	Err       error    `json:"-"`
	ErrorKind string   `json:"error,omitempty"`
	Abandoned bool     `json:"abandoned,omitempty"`
	Booking   *Booking `json:"booking,omitempty"`
	// AddressCheck is set when the address validator was called this turn.
	AddressCheck string `json:"-"`
}
