package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/patient-intake/internal/db"
)

// Repository stores appointment slots.
type Repository interface {
	Get(ctx context.Context, id string) (*Slot, error)
	// ListAvailable returns available slots starting at or after from, earliest first.
	ListAvailable(ctx context.Context, providerID string, from time.Time, limit int) ([]Slot, error)
	// Claim moves the slot from available to booked under bookingKey, or
	// fails with ErrSlotUnavailable when it is no longer available.
	Claim(ctx context.Context, id, bookingKey string, at time.Time) error
	// Attach records who the claimed slot was booked for.
	Attach(ctx context.Context, id, patientID, visitID, reason string) error
}

type InMemoryRepository struct {
	mu    sync.Mutex
	slots map[string]*Slot
}

func NewInMemoryRepository(seed ...Slot) *InMemoryRepository {
	r := &InMemoryRepository{slots: make(map[string]*Slot)}
	for _, s := range seed {
		r.Add(s)
	}
	return r
}

func (r *InMemoryRepository) Add(s Slot) {
	if s.Status == "" {
		s.Status = StatusAvailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[s.ID] = &s
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *InMemoryRepository) ListAvailable(ctx context.Context, providerID string, from time.Time, limit int) ([]Slot, error) {
	r.mu.Lock()
	var out []Slot
	for _, s := range r.slots {
		if s.ProviderID == providerID && s.Status == StatusAvailable && !s.StartsAt.Before(from) {
			out = append(out, *s)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Claim(ctx context.Context, id, bookingKey string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != StatusAvailable {
		return ErrSlotUnavailable
	}
	prev := *s
	s.Status = StatusBooked
	s.BookingKey = bookingKey
	bookedAt := at
	s.BookedAt = &bookedAt

	db.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.slots[id] = prev
	})
	return nil
}

func (r *InMemoryRepository) Attach(ctx context.Context, id, patientID, visitID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	prev := *s
	s.PatientID, s.VisitID, s.Reason = patientID, visitID, reason

	db.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.slots[id] = prev
	})
	return nil
}
