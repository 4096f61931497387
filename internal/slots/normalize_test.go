package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"03/15/1985", "1985-03-15"},
		{"3/5/1990", "1990-03-05"},
		{"03-15-1985", "1985-03-15"},
		{"1985-03-15", "1985-03-15"},
		{"1990-3-5", "1990-03-05"},
		{"March 5, 1990", "1990-03-05"},
		{"Mar 5 1990", "1990-03-05"},
		{"Sept. 21st, 2001", "2001-09-21"},
		{"5 March 1990", "1990-03-05"},
		{"29th February 2000", "2000-02-29"},
		{"02/29/2024", "2024-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := NormalizeDate(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalization must be idempotent")
		})
	}
}

func TestNormalizeDateInvalid(t *testing.T) {
	for _, in := range []string{
		"", "02/30/1990", "13/01/1990", "00/10/1990", "02/29/2023", "1990-02-30",
		"March 32, 1990", "Smarch 3, 1990", "10/10/90", "yesterday", "12345",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeDate(in)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestNormalizeBirthDateRejectsFuture(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	defer func() { now = orig }()

	_, err := NormalizeBirthDate("02/01/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	got, err := NormalizeBirthDate("01/10/2026")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-10", got)
}

func TestNormalizePhone(t *testing.T) {
	valid := map[string]string{
		"555-123-4567":    "5551234567",
		"(555) 123-4567":  "5551234567",
		"+1 555 123 4567": "5551234567",
		"15551234567":     "5551234567",
		"555.123.4567":    "5551234567",
	}
	for in, want := range valid {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"555-1234", "25551234567", "123456789012", "call me", "", "٠١٢٣٤", "٥٥٥١٢٣٤٥٦٧", "555１２３4567"} {
		_, err := NormalizePhone(in)
		assert.ErrorIs(t, err, ErrInvalidPhone, in)
	}
}

func TestNormalizeState(t *testing.T) {
	valid := map[string]string{
		"CA":                   "CA",
		"ca":                   "CA",
		"California":           "CA",
		"new  york":            "NY",
		"West Virginia":        "WV",
		"District of Columbia": "DC",
		"N.Y.":                 "NY",
	}
	for in, want := range valid {
		got, err := NormalizeState(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"ZZ", "Calif", "Ontario", ""} {
		_, err := NormalizeState(in)
		assert.ErrorIs(t, err, ErrInvalidState, in)
	}
}

func TestNormalizeOtherFields(t *testing.T) {
	tests := []struct {
		field   Field
		in      string
		want    string
		wantErr error
	}{
		{ZipCode, "94102", "94102", nil},
		{ZipCode, "94102-1234", "94102-1234", nil},
		{ZipCode, "941021234", "94102-1234", nil},
		{ZipCode, "9410", "", ErrInvalidZip},
		{Email, " Jane.Doe@Example.COM ", "jane.doe@example.com", nil},
		{Email, "jane@", "", ErrInvalidEmail},
		{FirstName, "jANE", "jANE", nil},
		{FirstName, "jane", "Jane", nil},
		{LastName, "O'NEIL", "O'neil", nil},
		{LastName, "McDonald", "McDonald", nil},
		{FirstName, "R2D2", "", ErrInvalidName},
		{Severity, "7", "7", nil},
		{Severity, "11", "", ErrInvalidSeverity},
		{InsurancePlan, "ppo", "PPO", nil},
		{ChiefComplaint, "  back   pain ", "back pain", nil},
		{ChiefComplaint, "   ", "", ErrEmpty},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"/"+tt.in, func(t *testing.T) {
			got, err := Normalize(tt.field, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
