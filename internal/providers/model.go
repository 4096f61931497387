// Package providers ranks the providers eligible for a patient's insurance and complaint.
package providers

import "strings"

// Provider is a clinician as seeded by the practice. Read-only to intake.
type Provider struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Specialty            string   `json:"specialty"`
	InsuranceAccepted    []string `json:"insurance_accepted"`
	ConditionsTreated    []string `json:"conditions_treated"`
	Rating               float64  `json:"rating"`
	AcceptingNewPatients bool     `json:"accepting_new_patients"`
}

// AcceptsPayer reports whether any accepted plan names the payer. Plan names
// carry a product suffix ("Aetna HMO"), so containment in either direction counts.
func (p Provider) AcceptsPayer(payer string) bool {
	want := normalizeText(payer)
	if want == "" {
		return false
	}
	for _, accepted := range p.InsuranceAccepted {
		have := normalizeText(accepted)
		if have == "" {
			continue
		}
		if have == want || strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

// Treats reports whether any condition tag intersects the complaint terms.
func (p Provider) Treats(terms []string) bool {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	for _, tag := range p.ConditionsTreated {
		for _, t := range tagTerms(tag) {
			if set[t] {
				return true
			}
		}
	}
	return false
}

// Eligible combines the payer and condition filters with the new-patient flag.
func (p Provider) Eligible(payer string, terms []string) bool {
	return p.AcceptingNewPatients && p.AcceptsPayer(payer) && p.Treats(terms)
}
