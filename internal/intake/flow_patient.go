package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/patient-intake/internal/nlu"
	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/internal/slots"
)

func (t *turn) greet() (Prompt, error) {
	t.enter(StateCheckPatient)
	return t.checkPatient(true)
}

// checkPatient decides between the new and returning paths. Identifiers given
// alongside the answer are kept either way.
func (t *turn) checkPatient(fromGreeting bool) (Prompt, error) {
	status, err := t.patientStatus()
	if err != nil {
		return Prompt{}, err
	}
	res, err := t.extract(slots.PatientSchema)
	if err != nil {
		return Prompt{}, err
	}
	issues := t.issues(res, slots.PatientSchema)
	t.s.Profile.Merge(res, slots.PatientSchema)

	switch {
	case status == nlu.StatusNew:
		t.s.ClaimedReturning = false
		t.enter(StateCollectPatient)
		return t.evaluate(patientSection, issues), nil
	case status == nlu.StatusReturning || t.s.ClaimedReturning:
		t.s.ClaimedReturning = true
		return t.identify(issues)
	case fromGreeting && !res.Stated():
		return Prompt{Kind: PromptAskStatus}, nil
	}
	t.enter(StateCollectPatient)
	return t.evaluate(patientSection, issues), nil
}

// identify looks up a returning patient with whatever identifiers have been
// collected so far.
func (t *turn) identify(issues []FieldIssue) (Prompt, error) {
	p := &t.s.Profile
	c := patients.Criteria{
		Phone:       p.Phone,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
	}
	if c.Empty() {
		return Prompt{Kind: PromptIdentify, Invalid: issues}, nil
	}

	start := time.Now()
	found, err := t.m.deps.Patients.Match(t.ctx, c)
	t.observe("match_patient", start, err)
	switch {
	case errors.Is(err, patients.ErrAmbiguousMatch):
		t.note(&AmbiguousMatchError{})
		return Prompt{Kind: PromptIdentify, Notice: "I found more than one record with those details."}, nil
	case errors.Is(err, patients.ErrPatientNotFound), errors.Is(err, patients.ErrNoCriteria):
		t.note(&NotFoundError{What: "patient"})
		return Prompt{Kind: PromptIdentify, Notice: "I couldn't find a record with those details."}, nil
	case err != nil:
		return Prompt{}, &PersistenceError{Op: "find patient", Err: err}
	}

	t.s.PatientID = found.ID
	t.s.Profile = ProfileFromPatient(*found)
	t.s.PendingUpdates = nil
	t.s.AddressAttempts = 0
	t.s.AddressSuggestion = ""
	t.enter(StateConfirmReturning)
	t.m.logger.Info("returning patient matched", "session_id", t.s.ID, "patient_id", found.ID)
	return t.review("", nil), nil
}

func (t *turn) collect(sec section) (Prompt, error) {
	res, err := t.extract(sec.schema)
	if err != nil {
		return Prompt{}, err
	}
	issues := t.issues(res, sec.schema)
	t.s.Profile.Merge(res, sec.schema)
	return t.evaluate(sec, issues), nil
}

// evaluate moves to the section's confirmation once every required field is
// captured and none was rejected this turn, otherwise asks for the rest.
func (t *turn) evaluate(sec section, issues []FieldIssue) Prompt {
	p := &t.s.Profile
	missing := p.Missing(sec.required)
	if len(missing) == 0 && !blocked(sec, issues) {
		t.enter(sec.confirm)
		return Prompt{
			Kind:    PromptConfirmSection,
			Section: sec.name,
			Lines:   sec.summaryLines(p),
			Invalid: issues,
		}
	}
	return Prompt{
		Kind:    PromptCollect,
		Section: sec.name,
		Fresh:   len(issues) == 0 && !p.Captured(sec.schema),
		Missing: missing,
		Invalid: issues,
	}
}

// blocked reports whether a required field of sec was rejected.
func blocked(sec section, issues []FieldIssue) bool {
	for _, is := range issues {
		if sec.isRequired(is.Field) {
			return true
		}
	}
	return false
}

// confirmSection handles the reply to "Is this correct?". Values stated in the
// reply are treated as a correction even when the reply also says yes.
func (t *turn) confirmSection(sec section) (Prompt, error) {
	intent, err := t.intent()
	if err != nil {
		return Prompt{}, err
	}
	res, err := t.extract(sec.schema)
	if err != nil {
		return Prompt{}, err
	}

	if said := stated(res, sec.schema); len(said) > 0 {
		issues := t.issues(res, sec.schema)
		t.s.Profile.Merge(res, sec.schema)
		for _, is := range issues {
			t.s.Profile.Clear(is.Field)
		}
		t.enter(sec.collect)
		if sec.name == addressSection.name {
			return t.afterAddressInput(issues, true)
		}
		return t.evaluate(sec, issues), nil
	}

	switch intent {
	case nlu.IntentAffirmative:
		return t.advance(sec), nil
	case nlu.IntentNegative, nlu.IntentUpdateRequest:
		disputed := mentionedFields(t.text, sec.schema)
		if len(disputed) == 0 {
			disputed = sec.schema
		}
		t.s.Profile.Clear(disputed...)
		if sec.name == addressSection.name {
			t.s.AddressSuggestion = ""
		}
		t.enter(sec.collect)
		p := &t.s.Profile
		return Prompt{
			Kind:    PromptCollect,
			Section: sec.name,
			Fresh:   !p.Captured(sec.schema),
			Missing: disputed,
		}, nil
	}
	return Prompt{Kind: PromptClarify, Lines: sec.summaryLines(&t.s.Profile)}, nil
}

// advance enters the section after sec.
func (t *turn) advance(sec section) Prompt {
	next, ok := sectionFor(sec.next)
	if !ok {
		return Prompt{Kind: PromptTurnFailed}
	}
	t.enter(next.collect)
	p := &t.s.Profile
	return Prompt{
		Kind:    PromptCollect,
		Section: next.name,
		Fresh:   !p.Captured(next.schema),
		Missing: p.Missing(next.required),
	}
}

var fieldWords = map[slots.Field][]string{
	slots.FirstName:         {"first name"},
	slots.LastName:          {"last name", "surname"},
	slots.DateOfBirth:       {"birth", "dob", "birthday"},
	slots.Phone:             {"phone", "number", "cell"},
	slots.Email:             {"email", "e-mail"},
	slots.InsurancePayer:    {"provider", "insurer", "insurance company", "carrier", "payer"},
	slots.InsurancePlan:     {"plan"},
	slots.InsuranceMemberID: {"member"},
	slots.InsuranceGroupID:  {"group"},
	slots.AddressLine1:      {"street"},
	slots.AddressLine2:      {"apartment", "apt", "unit", "suite"},
	slots.City:              {"city"},
	slots.State:             {"state"},
	slots.ZipCode:           {"zip", "postal"},
}

// mentionedFields lists the fields of schema that text refers to by name,
// as in "no, the phone is wrong".
func mentionedFields(text string, schema slots.Schema) []slots.Field {
	lower := strings.ToLower(text)
	var out []slots.Field
	for _, f := range schema {
		for _, w := range fieldWords[f] {
			if strings.Contains(lower, w) {
				out = append(out, f)
				break
			}
		}
	}
	// "name" alone disputes both halves.
	if len(out) == 0 && strings.Contains(lower, "name") && schema.Has(slots.FirstName) {
		out = append(out, slots.FirstName, slots.LastName)
	}
	return out
}

// confirmReturning reviews the stored profile with a matched patient and
// stages whatever they change.
func (t *turn) confirmReturning() (Prompt, error) {
	res, err := t.extract(slots.ProfileSchema)
	if err != nil {
		return Prompt{}, err
	}
	p := &t.s.Profile

	if len(stated(res, slots.ProfileSchema)) == 0 {
		intent, err := t.intent()
		if err != nil {
			return Prompt{}, err
		}
		if t.s.AddressSuggestion != "" {
			switch intent {
			case nlu.IntentAffirmative:
				if !t.adoptSuggestion() {
					return Prompt{Kind: PromptAddressRetry}, nil
				}
				return t.review("Thanks, I've updated your address.", nil), nil
			case nlu.IntentNegative:
				t.s.AddressSuggestion = ""
				return t.review("Okay, I'll keep the address on file unless you send a new one.", nil), nil
			}
			return Prompt{Kind: PromptAddressRetry, Suggestion: t.s.AddressSuggestion}, nil
		}

		switch intent {
		case nlu.IntentAffirmative, nlu.IntentNegative:
			if missing := p.Missing(insuranceSection.required); len(missing) > 0 {
				return t.review("", nil), nil
			}
			if err := t.persistUpdates(); err != nil {
				return Prompt{}, err
			}
			t.enter(StateCollectMedical)
			return Prompt{Kind: PromptCollect, Section: medicalSection.name, Fresh: true}, nil
		case nlu.IntentUpdateRequest:
			return t.review("Sure, what would you like to change?", nil), nil
		}
		return t.review("Sorry, I didn't catch that.", nil), nil
	}

	issues := t.issues(res, slots.ProfileSchema)
	for _, f := range slots.ProfileSchema {
		if isAddressField(f) {
			continue
		}
		if v, ok := res.Valid(f); ok && p.Get(f) != v {
			p.Set(f, v)
			t.s.addPending(f)
		}
	}

	var addressChanged bool
	candidate := p.Address()
	for _, f := range slots.AddressSchema {
		v, ok := res.Valid(f)
		if !ok || p.Get(f) == v {
			continue
		}
		addressChanged = true
		switch f {
		case slots.AddressLine1:
			candidate.Line1 = v
		case slots.AddressLine2:
			candidate.Line2 = v
		case slots.City:
			candidate.City = v
		case slots.State:
			candidate.State = v
		case slots.ZipCode:
			candidate.Zip = v
		}
	}
	if !addressChanged || blocked(addressSection, issues) || !candidate.Complete() {
		return t.review("Thanks, I've noted that.", issues), nil
	}

	before := p.Address()
	vr, verified := t.validateAddress(candidate)
	t.enter(StateConfirmReturning)
	switch {
	case verified:
		p.SetAddress(vr.Standardized, true)
		t.s.AddressAttempts = 0
		t.s.AddressSuggestion = ""
	case t.s.AddressAttempts+1 < t.m.maxAttempts:
		t.s.AddressAttempts++
		t.s.AddressSuggestion = vr.Suggestion
		return Prompt{Kind: PromptAddressRetry, Suggestion: vr.Suggestion, Invalid: issues}, nil
	default:
		t.s.AddressAttempts = 0
		t.s.AddressSuggestion = ""
		p.SetAddress(candidate, false)
	}
	t.stageAddress(before)
	notice := "Thanks, I've updated your address."
	if !p.AddressValidated {
		notice = "I couldn't verify the new address, so I've kept it as you entered it."
	}
	return t.review(notice, issues), nil
}

// stageAddress records the address components that differ from before.
func (t *turn) stageAddress(before slots.AddressParts) {
	after := t.s.Profile.Address()
	pairs := []struct {
		f      slots.Field
		old, v string
	}{
		{slots.AddressLine1, before.Line1, after.Line1},
		{slots.AddressLine2, before.Line2, after.Line2},
		{slots.City, before.City, after.City},
		{slots.State, before.State, after.State},
		{slots.ZipCode, before.Zip, after.Zip},
	}
	for _, pr := range pairs {
		if pr.old != pr.v {
			t.s.addPending(pr.f)
		}
	}
}

// review shows the stored profile with any staged changes applied.
func (t *turn) review(notice string, issues []FieldIssue) Prompt {
	p := &t.s.Profile
	lines := []string{
		fmt.Sprintf("Name: %s %s", p.FirstName, p.LastName),
		"Date of birth: " + p.DateOfBirth,
		"Phone: " + p.Phone,
	}
	if p.Email != "" {
		lines = append(lines, "Email: "+p.Email)
	}
	if p.Captured(slots.AddressSchema) {
		lines = append(lines, addressSection.summaryLines(p)...)
	}
	if p.InsurancePayer != "" {
		ins := "Insurance: " + p.InsurancePayer
		if p.InsurancePlan != "" {
			ins += " " + p.InsurancePlan
		}
		if p.InsuranceMemberID != "" {
			ins += ", member ID " + p.InsuranceMemberID
		}
		lines = append(lines, ins)
	}
	if len(t.s.PendingUpdates) > 0 {
		labels := make([]string, 0, len(t.s.PendingUpdates))
		for _, f := range t.s.PendingUpdates {
			labels = append(labels, f.Label())
		}
		lines = append(lines, "Changed: "+joinWords(labels))
	}
	return Prompt{
		Kind:    PromptReviewProfile,
		Title:   fmt.Sprintf("Welcome back, %s! Here is what we have on file:", p.FirstName),
		Lines:   lines,
		Notice:  notice,
		Invalid: issues,
		Missing: p.Missing(insuranceSection.required),
	}
}

// persistUpdates writes the staged returning-patient changes. The store logs
// one change entry per field that actually differs.
func (t *turn) persistUpdates() error {
	if len(t.s.PendingUpdates) == 0 {
		return nil
	}
	start := time.Now()
	_, changes, err := t.m.deps.Store.Upsert(t.ctx, t.s.Profile.Patient(t.s.PatientID), changedBy(t.s))
	t.observe("save_patient", start, err)
	if err != nil {
		return &PersistenceError{Op: "save patient updates", Err: err}
	}
	t.m.logger.Info("returning patient updated",
		"session_id", t.s.ID,
		"patient_id", t.s.PatientID,
		"changes", len(changes),
	)
	t.s.PendingUpdates = nil
	return nil
}

func changedBy(s *Session) string {
	return "intake:" + s.ID
}
