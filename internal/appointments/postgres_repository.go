package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wolfman30/patient-intake/internal/db"
)

const slotColumns = `id, provider_id, starts_at, duration_minutes, status, patient_id, visit_id, reason, booked_at, booking_key`

type PostgresRepository struct {
	pool db.Querier
}

func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func scanSlot(row pgx.Row) (Slot, error) {
	var (
		s         Slot
		status    string
		patientID *string
		visitID   *string
		key       *string
	)
	if err := row.Scan(&s.ID, &s.ProviderID, &s.StartsAt, &s.DurationMinutes, &status, &patientID, &visitID, &s.Reason, &s.BookedAt, &key); err != nil {
		return Slot{}, err
	}
	s.Status = Status(status)
	if patientID != nil {
		s.PatientID = *patientID
	}
	if visitID != nil {
		s.VisitID = *visitID
	}
	if key != nil {
		s.BookingKey = *key
	}
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Slot, error) {
	s, err := scanSlot(db.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, `SELECT `+slotColumns+` FROM appointment_slots WHERE id = $1`, id))
	if err != nil {
		if err = db.MapError(err, "slot", id); errors.Is(err, db.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) ListAvailable(ctx context.Context, providerID string, from time.Time, limit int) ([]Slot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.QuerierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE provider_id = $1 AND status = 'available' AND starts_at >= $2
		ORDER BY starts_at, id
		LIMIT $3`, providerID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list available: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Claim is a compare-and-swap on status; zero affected rows means another
// booking got there first.
func (r *PostgresRepository) Claim(ctx context.Context, id, bookingKey string, at time.Time) error {
	tag, err := db.QuerierFromCtx(ctx, r.pool).Exec(ctx, `
		UPDATE appointment_slots
		SET status = 'booked', booked_at = $2, booking_key = NULLIF($3, '')
		WHERE id = $1 AND status = 'available'`, id, at, bookingKey)
	if err != nil {
		return fmt.Errorf("appointments: claim: %w", db.MapError(err, "slot", id))
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

func (r *PostgresRepository) Attach(ctx context.Context, id, patientID, visitID, reason string) error {
	tag, err := db.QuerierFromCtx(ctx, r.pool).Exec(ctx, `
		UPDATE appointment_slots
		SET patient_id = $2, visit_id = $3, reason = $4
		WHERE id = $1 AND status = 'booked'`, id, patientID, visitID, reason)
	if err != nil {
		return fmt.Errorf("appointments: attach: %w", db.MapError(err, "slot", id))
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
