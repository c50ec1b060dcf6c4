package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "weekday with 24 hour clock",
			input:  "Saturday, November 8, 2025 at 21:59:06",
			want:   time.Date(2025, 11, 8, 21, 59, 6, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "no weekday",
			input:  "November 8, 2025 at 21:59:06",
			want:   time.Date(2025, 11, 8, 21, 59, 6, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "abbreviated month with 12 hour clock",
			input:  "Nov 8, 2025 at 9:59:06 PM",
			want:   time.Date(2025, 11, 8, 21, 59, 6, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "lowercase meridiem",
			input:  "Monday, January 6, 2025 at 12:05:00 am",
			want:   time.Date(2025, 1, 6, 0, 5, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso date and time",
			input:  "2024-02-29 08:15:00",
			want:   time.Date(2024, 2, 29, 8, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso date only",
			input:  "2024-02-29",
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{name: "garbage", input: "whenever"},
		{name: "empty", input: ""},
		{name: "bad clock", input: "November 8, 2025 at noon"},
		{name: "bad month", input: "Smarch 8, 2025 at 21:59:06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, got.Equal(tt.want), "Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Nil(t, Format(nil))

	ts := time.Date(2025, 11, 8, 21, 59, 6, 0, time.UTC)
	assert.Equal(t, "2025-11-08 21:59:06", Format(&ts))
}
