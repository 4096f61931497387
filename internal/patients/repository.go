package patients

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/patient-intake/internal/db"
)

// Repository defines patient, change log and visit storage.
type Repository interface {
	Get(ctx context.Context, id string) (*Patient, error)
	FindByPhone(ctx context.Context, phone string) ([]Patient, error)
	FindByEmail(ctx context.Context, email string) ([]Patient, error)
	FindByNameDOB(ctx context.Context, firstName, lastName, dob string) ([]Patient, error)
	// Upsert creates the patient when ID is empty, otherwise updates it. One
	// change log entry is written per changed field in the same transaction.
	Upsert(ctx context.Context, p Patient, changedBy string) (*Patient, []ChangeLogEntry, error)
	ListChanges(ctx context.Context, patientID string) ([]ChangeLogEntry, error)
	CreateVisit(ctx context.Context, v Visit) (*Visit, error)
	ListVisits(ctx context.Context, patientID string, limit int) ([]Visit, error)
}

// InMemoryRepository keeps patients in process memory. Mutations register undo
// steps so a db.LocalTxRunner can roll them back.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	order    []string
	changes  map[string][]ChangeLogEntry
	visits   map[string][]Visit
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
		changes:  make(map[string][]ChangeLogEntry),
		visits:   make(map[string][]Visit),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) FindByPhone(ctx context.Context, phone string) ([]Patient, error) {
	return r.find(func(p *Patient) bool { return phone != "" && p.Phone == phone }), nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) ([]Patient, error) {
	return r.find(func(p *Patient) bool { return email != "" && strings.EqualFold(p.Email, email) }), nil
}

func (r *InMemoryRepository) FindByNameDOB(ctx context.Context, firstName, lastName, dob string) ([]Patient, error) {
	return r.find(func(p *Patient) bool {
		return strings.EqualFold(p.FirstName, firstName) &&
			strings.EqualFold(p.LastName, lastName) &&
			p.DateOfBirth == dob
	}), nil
}

func (r *InMemoryRepository) find(match func(*Patient) bool) []Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Patient
	for _, id := range r.order {
		if p := r.patients[id]; match(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (r *InMemoryRepository) Upsert(ctx context.Context, p Patient, changedBy string) (*Patient, []ChangeLogEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var (
		changes    []FieldChange
		changeType ChangeType
		previous   *Patient
	)
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
		changes = initialFields(p)
		changeType = ChangeCreate
	} else {
		existing, ok := r.patients[p.ID]
		if !ok {
			return nil, nil, ErrPatientNotFound
		}
		changes = ChangedFields(*existing, p)
		if len(changes) == 0 {
			cp := *existing
			return &cp, nil, nil
		}
		prev := *existing
		previous = &prev
		p.CreatedAt = existing.CreatedAt
		changeType = ChangeUpdate
	}
	p.UpdatedAt = now

	stored := p
	r.patients[p.ID] = &stored
	if previous == nil {
		r.order = append(r.order, p.ID)
	}

	logLen := len(r.changes[p.ID])
	entries := make([]ChangeLogEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, ChangeLogEntry{
			ID:         uuid.New().String(),
			PatientID:  p.ID,
			Field:      c.Field,
			OldValue:   c.OldValue,
			NewValue:   c.NewValue,
			ChangeType: changeType,
			ChangedBy:  changedBy,
			ChangedAt:  now,
		})
	}
	r.changes[p.ID] = append(r.changes[p.ID], entries...)

	id := p.ID
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if previous == nil {
			delete(r.patients, id)
			delete(r.changes, id)
			r.order = removeID(r.order, id)
			return
		}
		r.patients[id] = previous
		r.changes[id] = r.changes[id][:logLen]
	})

	return &p, entries, nil
}

func (r *InMemoryRepository) ListChanges(ctx context.Context, patientID string) ([]ChangeLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.patients[patientID]; !ok {
		return nil, ErrPatientNotFound
	}
	return append([]ChangeLogEntry(nil), r.changes[patientID]...), nil
}

func (r *InMemoryRepository) CreateVisit(ctx context.Context, v Visit) (*Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[v.PatientID]; !ok {
		return nil, ErrPatientNotFound
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = VisitStatusScheduled
	}
	v.CreatedAt = r.now()
	n := len(r.visits[v.PatientID])
	r.visits[v.PatientID] = append(r.visits[v.PatientID], v)

	patientID := v.PatientID
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.visits[patientID] = r.visits[patientID][:n]
	})
	return &v, nil
}

// ListVisits returns the newest visits first.
func (r *InMemoryRepository) ListVisits(ctx context.Context, patientID string, limit int) ([]Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.visits[patientID]
	visits := make([]Visit, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		visits = append(visits, stored[i])
	}
	if limit > 0 && len(visits) > limit {
		visits = visits[:limit]
	}
	return visits, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
