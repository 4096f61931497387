package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultListLimit = 10

// BookingRequest is everything committed by one booking.
type BookingRequest struct {
	SlotID     string
	ProviderID string
	// Patient is created when its ID is empty and updated otherwise.
	Patient         patients.Patient
	ChangedBy       string
	// BookingKey makes Book idempotent: a retry with the key that claimed the
	// slot gets the committed booking back instead of ErrSlotUnavailable.
	BookingKey      string
	ChiefComplaint  string
	Symptoms        string
	SymptomDuration string
	Severity        int
}

// Confirmation describes a committed booking.
type Confirmation struct {
	Slot     Slot
	Patient  patients.Patient
	Visit    patients.Visit
	Changes  []patients.ChangeLogEntry
	// Replayed is set when the booking was committed by an earlier call.
	Replayed bool
}

// Booker claims slots and writes the patient, change log and visit in one transaction.
type Booker struct {
	tx       db.TxRunner
	slots    Repository
	patients patients.Repository
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type BookerOption func(*Booker)

func WithLogger(logger *logging.Logger) BookerOption {
	return func(b *Booker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithClock(now func() time.Time) BookerOption {
	return func(b *Booker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBooker(tx db.TxRunner, slots Repository, patientRepo patients.Repository, opts ...BookerOption) *Booker {
	if tx == nil || slots == nil || patientRepo == nil {
		panic("appointments: tx runner, slot and patient repositories are required")
	}
	b := &Booker{
		tx:       tx,
		slots:    slots,
		patients: patientRepo,
		logger:   logging.Default(),
		tracer:   otel.Tracer("intake.internal.appointments"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ListAvailable returns the provider's future available slots, earliest first.
func (b *Booker) ListAvailable(ctx context.Context, providerID string) ([]Slot, error) {
	ctx, span := b.tracer.Start(ctx, "appointments.list_available")
	defer span.End()
	span.SetAttributes(attribute.String("provider_id", providerID))

	slots, err := b.slots.ListAvailable(ctx, providerID, b.now(), DefaultListLimit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return slots, nil
}

// Book claims the slot and persists the patient, their change log and the
// visit. Either everything commits or nothing does. A slot taken by a
// concurrent booking fails with ErrSlotUnavailable.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Confirmation, error) {
	ctx, span := b.tracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(attribute.String("slot_id", req.SlotID))

	if req.ChangedBy == "" {
		req.ChangedBy = "intake"
	}

	var conf Confirmation
	err := b.tx.RunInTx(ctx, func(ctx context.Context) error {
		slot, err := b.slots.Get(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if req.ProviderID != "" && slot.ProviderID != req.ProviderID {
			return ErrSlotNotFound
		}
		if req.BookingKey != "" && slot.Status == StatusBooked && slot.BookingKey == req.BookingKey {
			committed, err := b.committed(ctx, slot)
			if err != nil {
				return err
			}
			conf = *committed
			return nil
		}
		if err := b.slots.Claim(ctx, req.SlotID, req.BookingKey, b.now()); err != nil {
			return err
		}

		patient, changes, err := b.patients.Upsert(ctx, req.Patient, req.ChangedBy)
		if err != nil {
			return fmt.Errorf("appointments: save patient: %w", err)
		}

		visit, err := b.patients.CreateVisit(ctx, patients.Visit{
			PatientID:       patient.ID,
			AppointmentID:   req.SlotID,
			ChiefComplaint:  req.ChiefComplaint,
			Symptoms:        req.Symptoms,
			SymptomDuration: req.SymptomDuration,
			Severity:        req.Severity,
			Status:          patients.VisitStatusScheduled,
		})
		if err != nil {
			return fmt.Errorf("appointments: create visit: %w", err)
		}

		if err := b.slots.Attach(ctx, req.SlotID, patient.ID, visit.ID, req.ChiefComplaint); err != nil {
			return err
		}
		booked, err := b.slots.Get(ctx, req.SlotID)
		if err != nil {
			return err
		}

		conf = Confirmation{Slot: *booked, Patient: *patient, Visit: *visit, Changes: changes}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotUnavailable) {
			b.logger.Info("slot already booked", "slot_id", req.SlotID)
		} else {
			b.logger.Error("booking failed", "slot_id", req.SlotID, "error", err)
		}
		return nil, err
	}

	if conf.Replayed {
		b.logger.Info("booking already committed", "slot_id", conf.Slot.ID, "visit_id", conf.Visit.ID)
		return &conf, nil
	}
	b.logger.Info("appointment booked",
		"slot_id", conf.Slot.ID,
		"patient_id", conf.Patient.ID,
		"visit_id", conf.Visit.ID,
		"changes", len(conf.Changes),
	)
	return &conf, nil
}

// committed rebuilds the confirmation of a slot this caller already booked.
// A slot whose patient or visit cannot be found is treated as taken.
func (b *Booker) committed(ctx context.Context, slot *Slot) (*Confirmation, error) {
	if slot.PatientID == "" || slot.VisitID == "" {
		return nil, ErrSlotUnavailable
	}
	patient, err := b.patients.Get(ctx, slot.PatientID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("appointments: load booked patient: %w", err)
	}
	visits, err := b.patients.ListVisits(ctx, slot.PatientID, 0)
	if err != nil {
		return nil, fmt.Errorf("appointments: load booked visit: %w", err)
	}
	for _, v := range visits {
		if v.ID == slot.VisitID {
			return &Confirmation{Slot: *slot, Patient: *patient, Visit: v, Replayed: true}, nil
		}
	}
	return nil, ErrSlotUnavailable
}
