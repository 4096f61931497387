package providers

import (
	"context"
	"sync"
)

// Repository reads seeded providers.
type Repository interface {
	Get(ctx context.Context, id string) (*Provider, error)
	// ListFor returns providers accepting new patients with the given payer
	// whose condition tags intersect terms.
	ListFor(ctx context.Context, payer string, terms []string) ([]Provider, error)
}

type InMemoryRepository struct {
	mu        sync.RWMutex
	providers []Provider
}

func NewInMemoryRepository(seed ...Provider) *InMemoryRepository {
	return &InMemoryRepository{providers: append([]Provider(nil), seed...)}
}

// Add stores or replaces a provider.
func (r *InMemoryRepository) Add(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.providers {
		if r.providers[i].ID == p.ID {
			r.providers[i] = p
			return
		}
	}
	r.providers = append(r.providers, p)
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (r *InMemoryRepository) ListFor(ctx context.Context, payer string, terms []string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for _, p := range r.providers {
		if p.Eligible(payer, terms) {
			out = append(out, p)
		}
	}
	return out, nil
}
