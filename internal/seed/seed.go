// Package seed loads the practice's providers and open appointment slots from
// a JSON file into either the in-memory repositories or Postgres.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfman30/patient-intake/internal/appointments"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/providers"
)

const defaultSlotMinutes = 30

var ErrInvalidSeed = errors.New("seed: invalid seed data")

// Data is the seed file layout.
type Data struct {
	Providers []providers.Provider `json:"providers"`
	Slots     []appointments.Slot  `json:"slots"`
}

// Counts reports how many rows a load wrote.
type Counts struct {
	Providers int
	Slots     int
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes seed JSON. Unknown fields are rejected so typos surface early.
func Load(r io.Reader) (*Data, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) normalize() error {
	known := make(map[string]bool, len(d.Providers))
	for i, p := range d.Providers {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: provider %d needs id and name", ErrInvalidSeed, i)
		}
		if known[p.ID] {
			return fmt.Errorf("%w: duplicate provider %s", ErrInvalidSeed, p.ID)
		}
		known[p.ID] = true
	}
	seen := make(map[string]bool, len(d.Slots))
	for i := range d.Slots {
		s := &d.Slots[i]
		switch {
		case strings.TrimSpace(s.ID) == "":
			return fmt.Errorf("%w: slot %d needs an id", ErrInvalidSeed, i)
		case seen[s.ID]:
			return fmt.Errorf("%w: duplicate slot %s", ErrInvalidSeed, s.ID)
		case !known[s.ProviderID]:
			return fmt.Errorf("%w: slot %s names unknown provider %q", ErrInvalidSeed, s.ID, s.ProviderID)
		case s.StartsAt.IsZero():
			return fmt.Errorf("%w: slot %s needs starts_at", ErrInvalidSeed, s.ID)
		}
		seen[s.ID] = true
		if s.DurationMinutes <= 0 {
			s.DurationMinutes = defaultSlotMinutes
		}
		// Seeds only ever create open slots.
		s.Status = appointments.StatusAvailable
		s.PatientID, s.VisitID, s.Reason, s.BookedAt = "", "", "", nil
		s.StartsAt = s.StartsAt.UTC()
	}
	return nil
}

// ApplyMemory loads d into the in-memory repositories.
func (d *Data) ApplyMemory(provRepo *providers.InMemoryRepository, slotRepo *appointments.InMemoryRepository) Counts {
	for _, p := range d.Providers {
		provRepo.Add(p)
	}
	for _, s := range d.Slots {
		slotRepo.Add(s)
	}
	return Counts{Providers: len(d.Providers), Slots: len(d.Slots)}
}

// ApplyPostgres upserts providers and inserts slots that do not exist yet.
// Booked slots are never touched. Run it inside a transaction so a bad row
// leaves nothing behind.
func (d *Data) ApplyPostgres(ctx context.Context, q db.Querier) (Counts, error) {
	var c Counts
	for _, p := range d.Providers {
		tag, err := q.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, insurance_accepted, conditions_treated, rating, accepting_new_patients)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				specialty = EXCLUDED.specialty,
				insurance_accepted = EXCLUDED.insurance_accepted,
				conditions_treated = EXCLUDED.conditions_treated,
				rating = EXCLUDED.rating,
				accepting_new_patients = EXCLUDED.accepting_new_patients`,
			p.ID, p.Name, p.Specialty, nonNil(p.InsuranceAccepted), nonNil(p.ConditionsTreated), p.Rating, p.AcceptingNewPatients,
		)
		if err != nil {
			return c, fmt.Errorf("seed: provider %s: %w", p.ID, db.MapError(err, "provider", p.ID))
		}
		c.Providers += int(tag.RowsAffected())
	}
	for _, s := range d.Slots {
		tag, err := q.Exec(ctx, `
			INSERT INTO appointment_slots (id, provider_id, starts_at, duration_minutes, status)
			VALUES ($1, $2, $3, $4, 'available')
			ON CONFLICT (id) DO NOTHING`,
			s.ID, s.ProviderID, s.StartsAt, s.DurationMinutes,
		)
		if err != nil {
			return c, fmt.Errorf("seed: slot %s: %w", s.ID, db.MapError(err, "slot", s.ID))
		}
		c.Slots += int(tag.RowsAffected())
	}
	return c, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
