package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/patient-intake/internal/address"
	"github.com/wolfman30/patient-intake/internal/appointments"
	"github.com/wolfman30/patient-intake/internal/nlu"
	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/internal/providers"
	"github.com/wolfman30/patient-intake/internal/slots"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

const DefaultMaxAddressAttempts = 2

// Extractor turns text into normalized field values.
type Extractor interface {
	Extract(ctx context.Context, text string, schema slots.Schema) (slots.Result, error)
}

// PatientFinder resolves a returning patient.
type PatientFinder interface {
	Match(ctx context.Context, c patients.Criteria) (*patients.Patient, error)
}

// PatientStore persists confirmed returning-patient updates.
type PatientStore interface {
	Upsert(ctx context.Context, p patients.Patient, changedBy string) (*patients.Patient, []patients.ChangeLogEntry, error)
}

// ProviderFinder ranks providers for a payer and complaint.
type ProviderFinder interface {
	Match(ctx context.Context, payer, complaint string) ([]providers.Provider, error)
}

// Booker lists and books appointment slots.
type Booker interface {
	ListAvailable(ctx context.Context, providerID string) ([]appointments.Slot, error)
	Book(ctx context.Context, req appointments.BookingRequest) (*appointments.Confirmation, error)
}

// Recorder receives collaborator timings. A nil Recorder is allowed.
type Recorder interface {
	ObserveCollaborator(name string, d time.Duration, err error)
}

// Dependencies are the collaborators a Machine drives.
type Dependencies struct {
	Extractor  Extractor
	Classifier nlu.Classifier
	Patients   PatientFinder
	Store      PatientStore
	Providers  ProviderFinder
	Booker     Booker
	Address    address.Validator
}

// Machine decides the next state of a session from the user's text. It holds
// no per-session state; every call receives the session explicitly.
type Machine struct {
	deps        Dependencies
	maxAttempts int
	renderer    Renderer
	recorder    Recorder
	logger      *logging.Logger
	loc         *time.Location
	now         func() time.Time
}

type Option func(*Machine)

func WithMaxAddressAttempts(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func WithRenderer(r Renderer) Option {
	return func(m *Machine) {
		if r != nil {
			m.renderer = r
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.recorder = r }
}

func WithLogger(l *logging.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithLocation sets the time zone used for slot labels.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMachine(deps Dependencies, opts ...Option) *Machine {
	if deps.Extractor == nil || deps.Classifier == nil || deps.Patients == nil || deps.Store == nil ||
		deps.Providers == nil || deps.Booker == nil || deps.Address == nil {
		panic("intake: all machine dependencies are required")
	}
	m := &Machine{
		deps:        deps,
		maxAttempts: DefaultMaxAddressAttempts,
		renderer:    NewTemplateRenderer(),
		logger:      logging.Default(),
		loc:         time.UTC,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Greet returns the opening outcome for a new session.
func (m *Machine) Greet(s *Session) Outcome {
	return m.outcome(s, []State{s.State}, Prompt{Kind: PromptGreeting}, nil)
}

// Step processes one user turn. A returned error means the turn could not
// complete: s is left exactly as it was and the outcome tells the user to
// retry. Recoverable problems such as invalid values are reported through
// Outcome.Err with a nil error.
func (m *Machine) Step(ctx context.Context, s *Session, text string) (Outcome, error) {
	if s.State.Terminal() {
		return m.outcome(s, nil, Prompt{Kind: PromptSessionFinished}, ErrSessionEnded), ErrSessionEnded
	}
	if IsTermination(text) {
		return m.Abandon(s), nil
	}

	t := &turn{m: m, ctx: ctx, s: s.Clone(), text: text}
	prompt, err := t.run()
	if err != nil {
		m.logger.Warn("intake turn failed",
			"session_id", s.ID,
			"state", string(s.State),
			"error", err,
		)
		return m.outcome(s, nil, Prompt{Kind: PromptTurnFailed}, err), err
	}

	if len(t.path) == 0 {
		t.path = []State{t.s.State}
	}
	t.s.UpdatedAt = m.now()
	*s = *t.s
	out := m.outcome(s, t.path, prompt, t.err)
	out.AddressCheck = t.addressCheck
	return out, nil
}

// Abandon ends the session without persisting anything further.
func (m *Machine) Abandon(s *Session) Outcome {
	s.State = StateEnd
	s.Abandoned = true
	s.reset()
	s.UpdatedAt = m.now()
	out := m.outcome(s, []State{StateEnd}, Prompt{Kind: PromptAbandoned}, nil)
	out.Abandoned = true
	return out
}

func (m *Machine) outcome(s *Session, path []State, prompt Prompt, err error) Outcome {
	reply, rerr := m.renderer.Render(prompt)
	if rerr != nil {
		m.logger.Error("render reply", "kind", string(prompt.Kind), "error", rerr)
	}
	return Outcome{
		SessionID: s.ID,
		State:     s.State,
		Path:      path,
		Prompt:    prompt,
		Reply:     reply,
		Err:       err,
		ErrorKind: ErrorKind(err),
		Abandoned: s.Abandoned,
		Booking:   prompt.Booking,
	}
}

var terminationWords = map[string]bool{
	"quit": true, "exit": true, "cancel": true, "stop": true, "goodbye": true,
}

// IsTermination reports whether text is a request to end the conversation.
func IsTermination(text string) bool {
	s := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ".!")))
	return terminationWords[s]
}

// turn carries the working copy of a session through one Step.
type turn struct {
	m    *Machine
	ctx  context.Context
	s    *Session
	text string
	path []State
	// err is the recoverable problem reported with the outcome.
	err          error
	addressCheck string
}

func (t *turn) enter(st State) {
	t.s.State = st
	t.path = append(t.path, st)
}

func (t *turn) note(err error) {
	if t.err == nil {
		t.err = err
	}
}

func (t *turn) observe(name string, start time.Time, err error) {
	if t.m.recorder != nil {
		t.m.recorder.ObserveCollaborator(name, time.Since(start), err)
	}
}

func (t *turn) run() (Prompt, error) {
	switch t.s.State {
	case StateGreet:
		return t.greet()
	case StateCheckPatient:
		return t.checkPatient(false)
	case StateCollectPatient:
		return t.collect(patientSection)
	case StateConfirmPatient:
		return t.confirmSection(patientSection)
	case StateCollectInsurance:
		return t.collect(insuranceSection)
	case StateConfirmInsurance:
		return t.confirmSection(insuranceSection)
	case StateCollectAddress:
		return t.collectAddress()
	case StateConfirmAddress:
		return t.confirmSection(addressSection)
	case StateConfirmReturning:
		return t.confirmReturning()
	case StateCollectMedical:
		return t.collectMedical()
	case StateSelectProvider:
		return t.selectProvider()
	case StateSelectTime:
		return t.selectTime()
	case StateConfirm:
		return t.confirmBooking()
	}
	return Prompt{}, fmt.Errorf("intake: session is in an unknown state %q", t.s.State)
}

func (t *turn) extract(schema slots.Schema) (slots.Result, error) {
	start := time.Now()
	res, err := t.m.deps.Extractor.Extract(t.ctx, t.text, schema)
	t.observe("extract", start, err)
	if err != nil {
		return nil, &ExternalServiceError{Service: "understanding", Err: err}
	}
	return res, nil
}

func (t *turn) intent() (nlu.Intent, error) {
	start := time.Now()
	intent, err := t.m.deps.Classifier.ClassifyIntent(t.ctx, t.text)
	t.observe("classify_intent", start, err)
	if err != nil {
		return nlu.IntentAmbiguous, &ExternalServiceError{Service: "understanding", Err: err}
	}
	return intent, nil
}

func (t *turn) patientStatus() (nlu.PatientStatus, error) {
	start := time.Now()
	status, err := t.m.deps.Classifier.PatientStatus(t.ctx, t.text)
	t.observe("patient_status", start, err)
	if err != nil {
		return nlu.StatusUnknown, &ExternalServiceError{Service: "understanding", Err: err}
	}
	return status, nil
}

// issues converts invalid extractions into prompt issues and notes the first.
func (t *turn) issues(res slots.Result, schema slots.Schema) []FieldIssue {
	var out []FieldIssue
	for _, e := range res.Invalid(schema) {
		out = append(out, FieldIssue{
			Field:      e.Field,
			Label:      e.Field.Label(),
			Value:      e.Raw,
			Constraint: e.Field.Constraint(),
		})
		t.note(&ValidationError{Field: e.Field, Reason: e.Field.Constraint()})
	}
	return out
}

func stated(res slots.Result, schema slots.Schema) []slots.Field {
	var out []slots.Field
	for _, f := range schema {
		if e, ok := res[f]; ok && e.Status != slots.StatusAbsent {
			out = append(out, f)
		}
	}
	return out
}
