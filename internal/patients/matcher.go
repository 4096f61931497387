package patients

import (
	"context"
	"fmt"
	"strings"
)

// Matcher resolves a returning patient from the identifiers they gave.
type Matcher struct {
	repo Repository
}

func NewMatcher(repo Repository) *Matcher {
	if repo == nil {
		panic("patients: repository required")
	}
	return &Matcher{repo: repo}
}

// Match tries an exact phone match, then email, then first name + last name +
// date of birth. The first criterion that hits wins. Several patients sharing
// a name and date of birth yield ErrAmbiguousMatch.
func (m *Matcher) Match(ctx context.Context, c Criteria) (*Patient, error) {
	if c.Empty() {
		return nil, ErrNoCriteria
	}

	if c.Phone != "" {
		found, err := m.repo.FindByPhone(ctx, c.Phone)
		if err != nil {
			return nil, fmt.Errorf("patients: match by phone: %w", err)
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	if email := strings.TrimSpace(c.Email); email != "" {
		found, err := m.repo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("patients: match by email: %w", err)
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	if c.FirstName != "" && c.LastName != "" && c.DateOfBirth != "" {
		found, err := m.repo.FindByNameDOB(ctx, c.FirstName, c.LastName, c.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("patients: match by name: %w", err)
		}
		switch len(found) {
		case 0:
		case 1:
			return &found[0], nil
		default:
			return nil, ErrAmbiguousMatch
		}
	}
	return nil, ErrPatientNotFound
}

// BuildSummary loads a patient with their most recent chief complaints.
func BuildSummary(ctx context.Context, repo Repository, patientID string, recent int) (*Summary, error) {
	p, err := repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	visits, err := repo.ListVisits(ctx, patientID, 0)
	if err != nil {
		return nil, fmt.Errorf("patients: summary visits: %w", err)
	}
	summary := &Summary{Patient: *p, VisitCount: len(visits), RecentComplaints: []string{}}
	for _, v := range visits {
		if len(summary.RecentComplaints) == recent {
			break
		}
		if v.ChiefComplaint != "" {
			summary.RecentComplaints = append(summary.RecentComplaints, v.ChiefComplaint)
		}
	}
	return summary, nil
}
