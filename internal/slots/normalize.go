package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	ErrInvalidDate     = errors.New("slots: invalid date")
	ErrInvalidPhone    = errors.New("slots: invalid phone")
	ErrInvalidState    = errors.New("slots: invalid state")
	ErrInvalidZip      = errors.New("slots: invalid zip code")
	ErrInvalidEmail    = errors.New("slots: invalid email")
	ErrInvalidName     = errors.New("slots: invalid name")
	ErrInvalidSeverity = errors.New("slots: invalid severity")
	ErrEmpty           = errors.New("slots: empty value")
)

// now is swapped in tests that depend on "today".
var now = time.Now

var (
	usDateRe  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	ordinalRe = regexp.MustCompile(`(?i)^(\d{1,2})(st|nd|rd|th)$`)
	zipRe     = regexp.MustCompile(`^(\d{5})(?:-?(\d{4}))?$`)
	emailRe   = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// NormalizeDate converts MM/DD/YYYY, MM-DD-YYYY, YYYY-MM-DD and spelled-out
// month forms into YYYY-MM-DD. It is idempotent on its own output.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidDate
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}
	if m := usDateRe.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[1], m[2])
	}
	return naturalDate(s)
}

func naturalDate(s string) (string, error) {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(s))
	tokens := strings.Fields(cleaned)
	if len(tokens) != 3 {
		return "", ErrInvalidDate
	}
	day := func(tok string) string {
		if m := ordinalRe.FindStringSubmatch(tok); m != nil {
			return m[1]
		}
		return tok
	}
	// "March 5 1990" or "5 March 1990"
	if month, ok := months[tokens[0]]; ok {
		return calendarDate(tokens[2], strconv.Itoa(int(month)), day(tokens[1]))
	}
	if month, ok := months[tokens[1]]; ok {
		return calendarDate(tokens[2], strconv.Itoa(int(month)), day(tokens[0]))
	}
	return "", ErrInvalidDate
}

func calendarDate(yearStr, monthStr, dayStr string) (string, error) {
	if len(yearStr) != 4 {
		return "", ErrInvalidDate
	}
	year, err1 := strconv.Atoi(yearStr)
	month, err2 := strconv.Atoi(monthStr)
	day, err3 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", ErrInvalidDate
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", ErrInvalidDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", ErrInvalidDate
	}
	return t.Format("2006-01-02"), nil
}

// NormalizeBirthDate is NormalizeDate plus a check that the date is not in the future.
func NormalizeBirthDate(raw string) (string, error) {
	date, err := NormalizeDate(raw)
	if err != nil {
		return "", err
	}
	if date > now().UTC().Format("2006-01-02") {
		return "", fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date)
	}
	return date, nil
}

// NormalizePhone keeps ASCII digits only. Ten digits, or eleven with a leading 1, are accepted.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// NormalizeState maps a two-letter code or a full state name to the upper-case code.
func NormalizeState(raw string) (string, error) {
	s := strings.ToUpper(spaceRe.ReplaceAllString(strings.TrimSpace(strings.ReplaceAll(raw, ".", "")), " "))
	if len(s) == 2 && validCodes[s] {
		return s, nil
	}
	if code, ok := stateCodes[s]; ok {
		return code, nil
	}
	return "", ErrInvalidState
}

// NormalizeZip accepts 5-digit and ZIP+4 codes.
func NormalizeZip(raw string) (string, error) {
	m := zipRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", ErrInvalidZip
	}
	if m[2] != "" {
		return m[1] + "-" + m[2], nil
	}
	return m[1], nil
}

func NormalizeEmail(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(s) {
		return "", ErrInvalidEmail
	}
	return s, nil
}

// NormalizeName trims and capitalizes a personal name. Mixed-case input such as
// "McDonald" is kept as typed.
func NormalizeName(raw string) (string, error) {
	s := spaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return "", ErrInvalidName
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r == ' ' || r == '-' || r == '\'' || r == '.':
		default:
			return "", ErrInvalidName
		}
	}
	if !hasLetter {
		return "", ErrInvalidName
	}
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return s, nil
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " "), nil
}

func NormalizeSeverity(raw string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 10 {
		return "", ErrInvalidSeverity
	}
	return strconv.Itoa(n), nil
}

// Normalize applies the rule for f to raw. Fields without a dedicated rule
// only have their whitespace collapsed.
func Normalize(f Field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmpty
	}
	switch f {
	case DateOfBirth:
		return NormalizeBirthDate(raw)
	case Phone:
		return NormalizePhone(raw)
	case State:
		return NormalizeState(raw)
	case ZipCode:
		return NormalizeZip(raw)
	case Email:
		return NormalizeEmail(raw)
	case FirstName, LastName:
		return NormalizeName(raw)
	case Severity:
		return NormalizeSeverity(raw)
	case InsurancePlan:
		return strings.ToUpper(strings.TrimSpace(raw)), nil
	default:
		return spaceRe.ReplaceAllString(strings.TrimSpace(raw), " "), nil
	}
}
