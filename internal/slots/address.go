package slots

import (
	"regexp"
	"strings"
)

// AddressParts is a street address split into its components.
type AddressParts struct {
	Line1 string
	Line2 string
	City  string
	State string
	Zip   string
}

// Complete reports whether line1, city, state and zip are all present.
func (a AddressParts) Complete() bool {
	return a.Line1 != "" && a.City != "" && a.State != "" && a.Zip != ""
}

var (
	addressLeadRe  = regexp.MustCompile(`(?i)^(?:(?:my|the|new)\s+)?(?:address\s+is|address:|i\s+live\s+at|it'?s|it\s+is|i\s+moved\s+to)\s+`)
	countryTailRe  = regexp.MustCompile(`(?i)[,\s]+(?:usa|u\.s\.a\.?|us|united\s+states(?:\s+of\s+america)?)\.?$`)
	zipTailRe      = regexp.MustCompile(`^(.*?)\s*\b(\d{5}(?:-\d{4})?)$`)
	streetNumberRe = regexp.MustCompile(`^\d+[A-Za-z]?\s+\S`)
)

// ParseAddress splits text such as "123 Main St, Apt 4, Springfield, IL 62704"
// or "123 Main Street, San Francisco CA 94102, USA" into components. Missing
// parts are left empty; the state is returned as typed.
func ParseAddress(text string) AddressParts {
	s := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ".!"))
	s = addressLeadRe.ReplaceAllString(s, "")
	s = countryTailRe.ReplaceAllString(s, "")

	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return AddressParts{}
	}

	var out AddressParts
	m := zipTailRe.FindStringSubmatch(parts[len(parts)-1])
	if m == nil {
		if streetNumberRe.MatchString(parts[0]) {
			out.Line1 = parts[0]
			if len(parts) > 1 {
				out.City = parts[len(parts)-1]
			}
			if len(parts) > 2 {
				out.Line2 = strings.Join(parts[1:len(parts)-1], ", ")
			}
		}
		return out
	}
	out.Zip = m[2]
	rest := parts[:len(parts)-1]

	city, state := splitCityState(strings.TrimSpace(m[1]))
	out.State = state
	if city == "" && len(rest) > 1 {
		city = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	out.City = city
	if len(rest) > 0 {
		out.Line1 = rest[0]
		if len(rest) > 1 {
			out.Line2 = strings.Join(rest[1:], ", ")
		}
	}
	return out
}

// splitCityState separates a trailing state (code or full name) from a city.
func splitCityState(s string) (city, state string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return "", ""
	}
	// Longest full-name match first so "West Virginia" beats "Virginia".
	for n := 3; n >= 1; n-- {
		if len(words) < n {
			continue
		}
		candidate := strings.Join(words[len(words)-n:], " ")
		if _, err := NormalizeState(candidate); err == nil {
			return strings.Join(words[:len(words)-n], " "), candidate
		}
	}
	last := words[len(words)-1]
	return strings.Join(words[:len(words)-1], " "), last
}

// FormatAddress renders "line1, line2, City, ST ZIP", skipping empty parts.
func FormatAddress(a AddressParts) string {
	var parts []string
	for _, p := range []string{a.Line1, a.Line2, a.City} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(a.State + " " + a.Zip)
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}
