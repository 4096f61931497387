package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const DefaultLimit = 5

// Matcher ranks eligible providers for a payer and chief complaint.
type Matcher struct {
	repo  Repository
	limit int
}

func NewMatcher(repo Repository, limit int) *Matcher {
	if repo == nil {
		panic("providers: repository required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Matcher{repo: repo, limit: limit}
}

// Match returns providers ordered by rating descending, then id ascending. An
// empty list means nobody qualifies and is not an error.
func (m *Matcher) Match(ctx context.Context, payer, complaint string) ([]Provider, error) {
	if strings.TrimSpace(payer) == "" || strings.TrimSpace(complaint) == "" {
		return nil, ErrMissingCriteria
	}
	terms := ComplaintTerms(complaint)
	found, err := m.repo.ListFor(ctx, payer, terms)
	if err != nil {
		return nil, fmt.Errorf("providers: match: %w", err)
	}

	ranked := make([]Provider, 0, len(found))
	for _, p := range found {
		if p.Eligible(payer, terms) {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating > ranked[j].Rating
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > m.limit {
		ranked = ranked[:m.limit]
	}
	return ranked, nil
}
