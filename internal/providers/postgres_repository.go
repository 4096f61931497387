package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/wolfman30/patient-intake/internal/db"
)

const providerColumns = `id, name, specialty, insurance_accepted, conditions_treated, rating, accepting_new_patients`

type PostgresRepository struct {
	pool db.Querier
}

func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	if pool == nil {
		panic("providers: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func scanProvider(row pgx.Row) (Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.InsuranceAccepted, &p.ConditionsTreated, &p.Rating, &p.AcceptingNewPatients)
	return p, err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Provider, error) {
	p, err := scanProvider(db.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if err != nil {
		if err = db.MapError(err, "provider", id); errors.Is(err, db.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("providers: get: %w", err)
	}
	return &p, nil
}

// ListFor narrows by payer in SQL; condition matching needs the tag term
// expansion and runs on the returned rows.
func (r *PostgresRepository) ListFor(ctx context.Context, payer string, terms []string) ([]Provider, error) {
	rows, err := db.QuerierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE accepting_new_patients
		  AND EXISTS (
			SELECT 1 FROM unnest(insurance_accepted) AS accepted
			WHERE strpos(lower(accepted), lower($1)) > 0 OR strpos(lower($1), lower(accepted)) > 0
		  )
		ORDER BY rating DESC, id`, payer)
	if err != nil {
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("providers: scan: %w", err)
		}
		if p.Eligible(payer, terms) {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}
