package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wolfman30/patient-intake/internal/db"
)

const patientColumns = `id, first_name, last_name, date_of_birth, phone, email,
	address_line1, address_line2, city, state, zip_code, address_validated,
	insurance_payer, insurance_plan, insurance_member_id, insurance_group_id,
	created_at, updated_at`

// PostgresRepository stores patients, their change log and visits in Postgres.
// Calls join the transaction carried on ctx when there is one.
type PostgresRepository struct {
	pool db.Pool
	tx   *db.TxManager
}

func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool, tx: db.NewTxManager(pool)}
}

func scanPatient(row pgx.Row) (Patient, error) {
	var (
		p   Patient
		dob time.Time
	)
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &dob, &p.Phone, &p.Email,
		&p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.ZipCode, &p.AddressValidated,
		&p.InsurancePayer, &p.InsurancePlan, &p.InsuranceMemberID, &p.InsuranceGroupID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Patient{}, err
	}
	p.DateOfBirth = dob.Format("2006-01-02")
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Patient, error) {
	q := db.QuerierFromCtx(ctx, r.pool)
	p, err := scanPatient(q.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(db.MapError(err, "patient", id))
	}
	return &p, nil
}

func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) ([]Patient, error) {
	return r.list(ctx, `SELECT `+patientColumns+` FROM patients WHERE phone = $1 ORDER BY created_at, id`, phone)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) ([]Patient, error) {
	return r.list(ctx, `SELECT `+patientColumns+` FROM patients WHERE email <> '' AND lower(email) = lower($1) ORDER BY created_at, id`, email)
}

func (r *PostgresRepository) FindByNameDOB(ctx context.Context, firstName, lastName, dob string) ([]Patient, error) {
	return r.list(ctx, `SELECT `+patientColumns+` FROM patients
		WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2) AND date_of_birth = $3
		ORDER BY created_at, id`, firstName, lastName, dob)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Patient, error) {
	rows, err := db.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: query: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p Patient, changedBy string) (*Patient, []ChangeLogEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		saved   Patient
		entries []ChangeLogEntry
	)
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := db.QuerierFromCtx(ctx, r.pool)

		var (
			changes    []FieldChange
			changeType ChangeType
		)
		if p.ID == "" {
			p.ID = uuid.New().String()
			if err := q.QueryRow(ctx, `
				INSERT INTO patients (id, first_name, last_name, date_of_birth, phone, email,
					address_line1, address_line2, city, state, zip_code, address_validated,
					insurance_payer, insurance_plan, insurance_member_id, insurance_group_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				RETURNING created_at, updated_at`,
				p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Phone, p.Email,
				p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode, p.AddressValidated,
				p.InsurancePayer, p.InsurancePlan, p.InsuranceMemberID, p.InsuranceGroupID,
			).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
				return db.MapError(err, "patient", p.ID)
			}
			changes = initialFields(p)
			changeType = ChangeCreate
		} else {
			existing, err := scanPatient(q.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1 FOR UPDATE`, p.ID))
			if err != nil {
				return notFound(db.MapError(err, "patient", p.ID))
			}
			changes = ChangedFields(existing, p)
			if len(changes) == 0 {
				saved = existing
				return nil
			}
			if err := q.QueryRow(ctx, `
				UPDATE patients SET first_name = $2, last_name = $3, date_of_birth = $4, phone = $5, email = $6,
					address_line1 = $7, address_line2 = $8, city = $9, state = $10, zip_code = $11,
					address_validated = $12, insurance_payer = $13, insurance_plan = $14,
					insurance_member_id = $15, insurance_group_id = $16, updated_at = now()
				WHERE id = $1
				RETURNING created_at, updated_at`,
				p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Phone, p.Email,
				p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode, p.AddressValidated,
				p.InsurancePayer, p.InsurancePlan, p.InsuranceMemberID, p.InsuranceGroupID,
			).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
				return db.MapError(err, "patient", p.ID)
			}
			changeType = ChangeUpdate
		}

		for _, c := range changes {
			entry := ChangeLogEntry{
				ID:         uuid.New().String(),
				PatientID:  p.ID,
				Field:      c.Field,
				OldValue:   c.OldValue,
				NewValue:   c.NewValue,
				ChangeType: changeType,
				ChangedBy:  changedBy,
			}
			if err := q.QueryRow(ctx, `
				INSERT INTO patient_change_log (id, patient_id, field_name, old_value, new_value, change_type, changed_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING changed_at`,
				entry.ID, entry.PatientID, entry.Field, entry.OldValue, entry.NewValue, string(entry.ChangeType), entry.ChangedBy,
			).Scan(&entry.ChangedAt); err != nil {
				return db.MapError(err, "patient change", p.ID)
			}
			entries = append(entries, entry)
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("patients: upsert: %w", err)
	}
	return &saved, entries, nil
}

func (r *PostgresRepository) ListChanges(ctx context.Context, patientID string) ([]ChangeLogEntry, error) {
	rows, err := db.QuerierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, field_name, old_value, new_value, change_type, changed_by, changed_at
		FROM patient_change_log
		WHERE patient_id = $1
		ORDER BY changed_at, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("patients: list changes: %w", err)
	}
	defer rows.Close()

	var out []ChangeLogEntry
	for rows.Next() {
		var (
			e          ChangeLogEntry
			changeType string
		)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Field, &e.OldValue, &e.NewValue, &changeType, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("patients: scan change: %w", err)
		}
		e.ChangeType = ChangeType(changeType)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateVisit(ctx context.Context, v Visit) (*Visit, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = VisitStatusScheduled
	}
	err := db.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, appointment_id, chief_complaint, symptoms, symptom_duration, severity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		v.ID, v.PatientID, v.AppointmentID, v.ChiefComplaint, v.Symptoms, v.SymptomDuration, v.Severity, v.Status,
	).Scan(&v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: create visit: %w", db.MapError(err, "visit", v.ID))
	}
	return &v, nil
}

func (r *PostgresRepository) ListVisits(ctx context.Context, patientID string, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QuerierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, appointment_id, chief_complaint, symptoms, symptom_duration, severity, status, created_at
		FROM visits
		WHERE patient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("patients: list visits: %w", err)
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.AppointmentID, &v.ChiefComplaint, &v.Symptoms, &v.SymptomDuration, &v.Severity, &v.Status, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrPatientNotFound
	}
	return err
}
