package appointments

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/patients"
)

var slotRowColumns = []string{
	"id", "provider_id", "starts_at", "duration_minutes", "status",
	"patient_id", "visit_id", "reason", "booked_at", "booking_key",
}

func slotRow(id string, status Status) *pgxmock.Rows {
	return pgxmock.NewRows(slotRowColumns).
		AddRow(id, "dr-1", fixedNow.Add(time.Hour), 30, string(status), nil, nil, "", nil, nil)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresListAvailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM appointment_slots").
		WithArgs("dr-1", fixedNow, 10).
		WillReturnRows(pgxmock.NewRows(slotRowColumns).
			AddRow("s-1", "dr-1", fixedNow.Add(time.Hour), 30, "available", nil, nil, "", nil, nil).
			AddRow("s-2", "dr-1", fixedNow.Add(2*time.Hour), 45, "available", nil, nil, "", nil, nil))

	repo := NewPostgresRepository(mock)
	got, err := repo.ListAvailable(context.Background(), "dr-1", fixedNow, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StatusAvailable, got[0].Status)
	assert.Equal(t, 45, got[1].DurationMinutes)
	assert.Empty(t, got[0].PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM appointment_slots WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(slotRowColumns))

	_, err = NewPostgresRepository(mock).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimLostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SET status = 'booked'").
		WithArgs("s-1", fixedNow, "sess-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewPostgresRepository(mock).Claim(context.Background(), "s-1", "sess-1", fixedNow)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBookCommitsInOneTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM appointment_slots WHERE id").
		WithArgs("s-1").
		WillReturnRows(slotRow("s-1", StatusAvailable))
	mock.ExpectExec("SET status = 'booked'").
		WithArgs("s-1", fixedNow, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(anyArgs(16)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedNow, fixedNow))
	for i := 0; i < 4; i++ {
		mock.ExpectQuery("INSERT INTO patient_change_log").
			WithArgs(anyArgs(7)...).
			WillReturnRows(pgxmock.NewRows([]string{"changed_at"}).AddRow(fixedNow))
	}
	mock.ExpectQuery("INSERT INTO visits").
		WithArgs(anyArgs(8)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(fixedNow))
	mock.ExpectExec("SET patient_id").
		WithArgs("s-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "knee pain").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM appointment_slots WHERE id").
		WithArgs("s-1").
		WillReturnRows(slotRow("s-1", StatusBooked))
	mock.ExpectCommit()

	b := NewBooker(db.NewTxManager(mock), NewPostgresRepository(mock), patients.NewPostgresRepository(mock),
		WithClock(func() time.Time { return fixedNow }))
	conf, err := b.Book(context.Background(), BookingRequest{
		SlotID:         "s-1",
		ProviderID:     "dr-1",
		Patient:        newPatient(),
		ChiefComplaint: "knee pain",
	})
	require.NoError(t, err)
	assert.Len(t, conf.Changes, 4)
	assert.Equal(t, StatusBooked, conf.Slot.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBookRollsBackWhenSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM appointment_slots WHERE id").
		WithArgs("s-1").
		WillReturnRows(slotRow("s-1", StatusAvailable))
	mock.ExpectExec("SET status = 'booked'").
		WithArgs("s-1", fixedNow, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	b := NewBooker(db.NewTxManager(mock), NewPostgresRepository(mock), patients.NewPostgresRepository(mock),
		WithClock(func() time.Time { return fixedNow }))
	_, err = b.Book(context.Background(), BookingRequest{SlotID: "s-1", Patient: newPatient()})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
