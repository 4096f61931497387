package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/patients"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newPatient() patients.Patient {
	return patients.Patient{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1985-03-15",
		Phone:       "5551234567",
	}
}

func newMemoryBooker(t *testing.T, slots ...Slot) (*Booker, *InMemoryRepository, *patients.InMemoryRepository) {
	t.Helper()
	slotRepo := NewInMemoryRepository(slots...)
	patientRepo := patients.NewInMemoryRepository()
	b := NewBooker(db.NewLocalTxRunner(), slotRepo, patientRepo, WithClock(func() time.Time { return fixedNow }))
	return b, slotRepo, patientRepo
}

func TestListAvailableFutureOnlyEarliestFirst(t *testing.T) {
	b, _, _ := newMemoryBooker(t,
		Slot{ID: "past", ProviderID: "dr-1", StartsAt: fixedNow.Add(-time.Hour)},
		Slot{ID: "late", ProviderID: "dr-1", StartsAt: fixedNow.Add(48 * time.Hour)},
		Slot{ID: "early", ProviderID: "dr-1", StartsAt: fixedNow.Add(2 * time.Hour)},
		Slot{ID: "booked", ProviderID: "dr-1", StartsAt: fixedNow.Add(3 * time.Hour), Status: StatusBooked},
		Slot{ID: "other", ProviderID: "dr-2", StartsAt: fixedNow.Add(time.Hour)},
	)

	got, err := b.ListAvailable(context.Background(), "dr-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestListAvailableCapsResults(t *testing.T) {
	var seed []Slot
	for i := 0; i < DefaultListLimit+5; i++ {
		seed = append(seed, Slot{ID: string(rune('a' + i)), ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Duration(i+1) * time.Hour)})
	}
	b, _, _ := newMemoryBooker(t, seed...)

	got, err := b.ListAvailable(context.Background(), "dr-1")
	require.NoError(t, err)
	assert.Len(t, got, DefaultListLimit)
}

func TestBookCreatesPatientVisitAndClaimsSlot(t *testing.T) {
	b, slotRepo, patientRepo := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(24 * time.Hour), DurationMinutes: 30})
	ctx := context.Background()

	conf, err := b.Book(ctx, BookingRequest{
		SlotID:         "s-1",
		ProviderID:     "dr-1",
		Patient:        newPatient(),
		ChangedBy:      "session-1",
		ChiefComplaint: "knee pain",
		Severity:       6,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, conf.Patient.ID)
	assert.Equal(t, StatusBooked, conf.Slot.Status)
	assert.Equal(t, conf.Patient.ID, conf.Slot.PatientID)
	assert.Equal(t, conf.Visit.ID, conf.Slot.VisitID)
	assert.Equal(t, "knee pain", conf.Slot.Reason)
	require.NotNil(t, conf.Slot.BookedAt)
	assert.Equal(t, fixedNow, *conf.Slot.BookedAt)
	assert.Len(t, conf.Changes, 4)
	for _, c := range conf.Changes {
		assert.Equal(t, patients.ChangeCreate, c.ChangeType)
		assert.Equal(t, "session-1", c.ChangedBy)
	}

	visits, err := patientRepo.ListVisits(ctx, conf.Patient.ID, 0)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "s-1", visits[0].AppointmentID)
	assert.Equal(t, 6, visits[0].Severity)

	available, err := slotRepo.ListAvailable(ctx, "dr-1", fixedNow, 0)
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestBookUpdatesReturningPatient(t *testing.T) {
	b, _, patientRepo := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})
	ctx := context.Background()

	existing, _, err := patientRepo.Upsert(ctx, newPatient(), "seed")
	require.NoError(t, err)

	updated := *existing
	updated.Phone = "5559876543"
	conf, err := b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: updated, ChiefComplaint: "rash"})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, conf.Patient.ID)
	require.Len(t, conf.Changes, 1)
	assert.Equal(t, "phone", conf.Changes[0].Field)
	assert.Equal(t, "5551234567", conf.Changes[0].OldValue)
	assert.Equal(t, patients.ChangeUpdate, conf.Changes[0].ChangeType)
	assert.Equal(t, "intake", conf.Changes[0].ChangedBy)
}

func TestBookRejectsSlotOfOtherProvider(t *testing.T) {
	b, _, _ := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})

	_, err := b.Book(context.Background(), BookingRequest{SlotID: "s-1", ProviderID: "dr-2", Patient: newPatient()})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookAlreadyBookedSlot(t *testing.T) {
	b, _, patientRepo := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour), Status: StatusBooked})

	_, err := b.Book(context.Background(), BookingRequest{SlotID: "s-1", Patient: newPatient()})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	found, err := patientRepo.FindByPhone(context.Background(), "5551234567")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBookRetryWithSameKeyReturnsCommittedBooking(t *testing.T) {
	b, slotRepo, patientRepo := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})
	ctx := context.Background()
	req := BookingRequest{SlotID: "s-1", ProviderID: "dr-1", Patient: newPatient(), BookingKey: "sess-1", ChiefComplaint: "cough"}

	first, err := b.Book(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	slot, err := slotRepo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", slot.BookingKey)

	again, err := b.Book(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Patient.ID, again.Patient.ID)
	assert.Equal(t, first.Visit.ID, again.Visit.ID)
	assert.Empty(t, again.Changes)

	found, err := patientRepo.FindByPhone(ctx, "5551234567")
	require.NoError(t, err)
	require.Len(t, found, 1)
	visits, err := patientRepo.ListVisits(ctx, found[0].ID, 0)
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestBookOtherKeyStillSeesSlotTaken(t *testing.T) {
	b, _, _ := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})
	ctx := context.Background()

	_, err := b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: newPatient(), BookingKey: "sess-1"})
	require.NoError(t, err)

	other := newPatient()
	other.Phone = "5559990000"
	_, err = b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: other, BookingKey: "sess-2"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: other})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "an empty key never matches")
}

func TestConcurrentBookingsOnlyOneWins(t *testing.T) {
	b, _, patientRepo := newMemoryBooker(t, Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newPatient()
			p.Phone = "555000000" + string(rune('0'+i))
			_, err := b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: p, ChiefComplaint: "cough"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotUnavailable):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)

	var created int
	for i := 0; i < attempts; i++ {
		found, err := patientRepo.FindByPhone(ctx, "555000000"+string(rune('0'+i)))
		require.NoError(t, err)
		created += len(found)
	}
	assert.Equal(t, 1, created)
}

type failingVisits struct {
	*patients.InMemoryRepository
}

func (f failingVisits) CreateVisit(ctx context.Context, v patients.Visit) (*patients.Visit, error) {
	return nil, errors.New("disk full")
}

func TestBookRollsBackEverythingOnFailure(t *testing.T) {
	slotRepo := NewInMemoryRepository(Slot{ID: "s-1", ProviderID: "dr-1", StartsAt: fixedNow.Add(time.Hour)})
	inner := patients.NewInMemoryRepository()
	b := NewBooker(db.NewLocalTxRunner(), slotRepo, failingVisits{inner}, WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	_, err := b.Book(ctx, BookingRequest{SlotID: "s-1", Patient: newPatient()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	slot, err := slotRepo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, slot.Status)
	assert.Nil(t, slot.BookedAt)

	found, err := inner.FindByPhone(ctx, "5551234567")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNewBookerPanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewBooker(nil, NewInMemoryRepository(), patients.NewInMemoryRepository()) })
}

func TestSlotLabel(t *testing.T) {
	s := Slot{StartsAt: time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC)}
	assert.Equal(t, "Tuesday, March 3 at 2:30 PM", s.Label(nil))
}
