package intake

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/patient-intake/internal/appointments"
	"github.com/wolfman30/patient-intake/internal/nlu"
	"github.com/wolfman30/patient-intake/internal/slots"
)

func (t *turn) collectMedical() (Prompt, error) {
	res, err := t.extract(slots.MedicalSchema)
	if err != nil {
		return Prompt{}, err
	}
	issues := t.issues(res, slots.MedicalSchema)
	p := &t.s.Profile
	p.Merge(res, slots.MedicalSchema)
	if p.ChiefComplaint == "" {
		return Prompt{
			Kind:    PromptCollect,
			Section: medicalSection.name,
			Fresh:   len(issues) == 0 && !p.Captured(slots.MedicalSchema),
			Missing: []slots.Field{slots.ChiefComplaint},
			Invalid: issues,
		}, nil
	}
	return t.queryProviders(issues)
}

// queryProviders offers the providers who accept the payer and treat the
// complaint. With none, the complaint is cleared so it can be restated.
func (t *turn) queryProviders(issues []FieldIssue) (Prompt, error) {
	p := &t.s.Profile
	start := time.Now()
	found, err := t.m.deps.Providers.Match(t.ctx, p.InsurancePayer, p.ChiefComplaint)
	t.observe("match_providers", start, err)
	if err != nil {
		return Prompt{}, &PersistenceError{Op: "list providers", Err: err}
	}
	if len(found) == 0 {
		t.note(&NotFoundError{What: "provider"})
		notice := fmt.Sprintf("I couldn't find a provider who accepts %s and treats %q.", p.InsurancePayer, p.ChiefComplaint)
		p.ChiefComplaint = ""
		return Prompt{Kind: PromptNoProviders, Notice: notice, Invalid: issues}, nil
	}

	t.s.Providers = make([]ProviderOption, 0, len(found))
	for _, pr := range found {
		t.s.Providers = append(t.s.Providers, ProviderOption{
			ID:        pr.ID,
			Name:      pr.Name,
			Specialty: pr.Specialty,
			Rating:    pr.Rating,
		})
	}
	t.s.ProviderID, t.s.Slots, t.s.SlotID = "", nil, ""
	t.enter(StateSelectProvider)
	return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers, Invalid: issues}, nil
}

func (t *turn) selectProvider() (Prompt, error) {
	names := make([]string, len(t.s.Providers))
	for i, p := range t.s.Providers {
		names[i] = p.Name
	}
	idx, match := resolve(t.text, names)
	switch match {
	case ambiguousMatch:
		t.note(&AmbiguousMatchError{})
		return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers,
			Notice: "More than one provider matches that. Please reply with the number."}, nil
	case noMatch:
		return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers,
			Notice: "I couldn't tell which provider you meant."}, nil
	case outOfRange:
		return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers,
			Notice: pickRange(len(names))}, nil
	}
	return t.loadSlots(t.s.Providers[idx], "")
}

// loadSlots fetches fresh availability for a provider. With nothing open the
// user goes back to the provider list.
func (t *turn) loadSlots(provider ProviderOption, notice string) (Prompt, error) {
	start := time.Now()
	list, err := t.m.deps.Booker.ListAvailable(t.ctx, provider.ID)
	t.observe("list_slots", start, err)
	if err != nil {
		return Prompt{}, &PersistenceError{Op: "list available slots", Err: err}
	}
	if len(list) == 0 {
		t.note(&NotFoundError{What: "availability"})
		t.s.ProviderID, t.s.Slots, t.s.SlotID = "", nil, ""
		if t.s.State != StateSelectProvider {
			t.enter(StateSelectProvider)
		}
		msg := provider.Name + " has no open times right now."
		if notice != "" {
			msg = notice + " " + msg
		}
		return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers, Notice: msg}, nil
	}

	t.s.ProviderID = provider.ID
	t.s.SlotID = ""
	t.s.Slots = make([]SlotOption, 0, len(list))
	for _, sl := range list {
		t.s.Slots = append(t.s.Slots, SlotOption{ID: sl.ID, StartsAt: sl.StartsAt, Label: sl.Label(t.m.loc)})
	}
	t.enter(StateSelectTime)
	return Prompt{Kind: PromptChooseTime, Title: provider.Name, Slots: t.s.Slots, Notice: notice}, nil
}

func (t *turn) selectTime() (Prompt, error) {
	labels := make([]string, len(t.s.Slots))
	for i, sl := range t.s.Slots {
		labels[i] = sl.Label
	}
	title := t.s.providerName(t.s.ProviderID)
	idx, match := resolve(t.text, labels)
	switch match {
	case ambiguousMatch:
		t.note(&AmbiguousMatchError{})
		return Prompt{Kind: PromptChooseTime, Title: title, Slots: t.s.Slots,
			Notice: "More than one time matches that. Please reply with the number."}, nil
	case noMatch:
		return Prompt{Kind: PromptChooseTime, Title: title, Slots: t.s.Slots,
			Notice: "I couldn't tell which time you meant."}, nil
	case outOfRange:
		return Prompt{Kind: PromptChooseTime, Title: title, Slots: t.s.Slots,
			Notice: pickRange(len(labels))}, nil
	}
	t.s.SlotID = t.s.Slots[idx].ID
	t.enter(StateConfirm)
	return Prompt{Kind: PromptConfirmBooking, Lines: t.bookingLines()}, nil
}

func pickRange(n int) string {
	if n == 1 {
		return "There is only one option. Reply 1 to choose it."
	}
	return fmt.Sprintf("Please pick a number from 1 to %d.", n)
}

func (t *turn) bookingLines() []string {
	p := &t.s.Profile
	sl, _ := t.s.slot(t.s.SlotID)
	return []string{
		fmt.Sprintf("Patient: %s %s", p.FirstName, p.LastName),
		"Provider: " + t.s.providerName(t.s.ProviderID),
		"Time: " + sl.Label,
		"Reason: " + p.ChiefComplaint,
	}
}

func (t *turn) confirmBooking() (Prompt, error) {
	intent, err := t.intent()
	if err != nil {
		return Prompt{}, err
	}
	switch intent {
	case nlu.IntentAffirmative:
		return t.book()
	case nlu.IntentNegative, nlu.IntentUpdateRequest:
		if wantsOtherProvider(t.text) {
			t.s.ProviderID, t.s.Slots, t.s.SlotID = "", nil, ""
			t.enter(StateSelectProvider)
			return Prompt{Kind: PromptChooseProvider, Providers: t.s.Providers, Notice: "No problem."}, nil
		}
		return t.loadSlots(t.currentProvider(), "No problem, let's pick another time.")
	}
	return Prompt{Kind: PromptClarify, Lines: t.bookingLines()}, nil
}

func (t *turn) currentProvider() ProviderOption {
	for _, p := range t.s.Providers {
		if p.ID == t.s.ProviderID {
			return p
		}
	}
	return ProviderOption{ID: t.s.ProviderID}
}

// book commits the selected slot. A slot lost to another session sends the
// user back to the refreshed times; anything else fails the turn.
func (t *turn) book() (Prompt, error) {
	p := &t.s.Profile
	req := appointments.BookingRequest{
		SlotID:          t.s.SlotID,
		ProviderID:      t.s.ProviderID,
		Patient:         p.Patient(t.s.PatientID),
		ChangedBy:       changedBy(t.s),
		BookingKey:      t.s.ID,
		ChiefComplaint:  p.ChiefComplaint,
		Symptoms:        p.Symptoms,
		SymptomDuration: p.SymptomDuration,
		Severity:        p.SeverityScore(),
	}
	start := time.Now()
	conf, err := t.m.deps.Booker.Book(t.ctx, req)
	t.observe("book", start, err)
	switch {
	case errors.Is(err, appointments.ErrSlotUnavailable), errors.Is(err, appointments.ErrSlotNotFound):
		t.note(&SlotUnavailableError{SlotID: req.SlotID})
		return t.loadSlots(t.currentProvider(), "Sorry, that time was just taken.")
	case err != nil:
		return Prompt{}, &PersistenceError{Op: "book appointment", Err: err}
	}

	booking := &Booking{
		SlotID:       conf.Slot.ID,
		PatientID:    conf.Patient.ID,
		VisitID:      conf.Visit.ID,
		ProviderID:   req.ProviderID,
		ProviderName: t.s.providerName(req.ProviderID),
		StartsAt:     conf.Slot.StartsAt,
		Label:        conf.Slot.Label(t.m.loc),
		PatientName:  conf.Patient.FullName(),
		Email:        conf.Patient.Email,
		Complaint:    conf.Visit.ChiefComplaint,
		Changes:      len(conf.Changes),
	}
	t.s.PatientID = conf.Patient.ID
	t.s.Booking = booking
	t.enter(StateEnd)
	t.s.reset()
	t.m.logger.Info("appointment booked",
		"session_id", t.s.ID,
		"patient_id", booking.PatientID,
		"slot_id", booking.SlotID,
		"visit_id", booking.VisitID,
	)
	return Prompt{Kind: PromptBooked, Booking: booking}, nil
}
