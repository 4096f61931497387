package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want AddressParts
	}{
		{
			name: "city and state share a segment",
			in:   "123 Mian Street, San Francisco CA 94102",
			want: AddressParts{Line1: "123 Mian Street", City: "San Francisco", State: "CA", Zip: "94102"},
		},
		{
			name: "suggestion with country suffix",
			in:   "123 Main Street, San Francisco, CA 94102, USA",
			want: AddressParts{Line1: "123 Main Street", City: "San Francisco", State: "CA", Zip: "94102"},
		},
		{
			name: "apartment line",
			in:   "My address is 9 Elm Rd, Apt 4B, Springfield, Illinois 62704.",
			want: AddressParts{Line1: "9 Elm Rd", Line2: "Apt 4B", City: "Springfield", State: "Illinois", Zip: "62704"},
		},
		{
			name: "two word state",
			in:   "500 Pine Ave, Charleston West Virginia 25301",
			want: AddressParts{Line1: "500 Pine Ave", City: "Charleston", State: "West Virginia", Zip: "25301"},
		},
		{
			name: "unknown state kept as typed",
			in:   "1 Loop Rd, Springfield, ZZ 62704",
			want: AddressParts{Line1: "1 Loop Rd", City: "Springfield", State: "ZZ", Zip: "62704"},
		},
		{
			name: "street only",
			in:   "42 Wallaby Way",
			want: AddressParts{Line1: "42 Wallaby Way"},
		},
		{
			name: "not an address",
			in:   "yes that is right",
			want: AddressParts{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.in))
		})
	}
}

func TestFormatAddress(t *testing.T) {
	a := AddressParts{Line1: "9 Elm Rd", Line2: "Apt 4B", City: "Springfield", State: "IL", Zip: "62704"}
	assert.Equal(t, "9 Elm Rd, Apt 4B, Springfield, IL 62704", FormatAddress(a))
	assert.True(t, a.Complete())

	a.Line2 = ""
	assert.Equal(t, "9 Elm Rd, Springfield, IL 62704", FormatAddress(a))

	assert.False(t, AddressParts{Line1: "9 Elm Rd"}.Complete())
}
