package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 14, d.Day())

	_, offset := d.Zone()
	assert.Equal(t, -5*60*60, offset)

	_, err = ParseDate("14/03/2026")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"09:00", 9, 0, false},
		{"13:30", 13, 30, false},
		{"10:00:00", 10, 0, false}, // trailing seconds dropped
		{"24:00", 0, 0, true},
		{"10:61", 0, 0, true},
		{"1030", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h, m, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestAtNormalizesSecondsVariance(t *testing.T) {
	date, err := ParseDate("2026-03-14")
	require.NoError(t, err)

	a, err := At(date, "10:00")
	require.NoError(t, err)
	b, err := At(date, "10:00:00")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, "2026-03-14T10:00:00-05:00", FormatInstant(a))
}

func TestIsPastDate(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, VenueZone)

	yesterday, _ := ParseDate("2026-03-13")
	today, _ := ParseDate("2026-03-14")
	tomorrow, _ := ParseDate("2026-03-15")

	assert.True(t, IsPastDate(yesterday, now))
	assert.False(t, IsPastDate(today, now), "later today is not past")
	assert.False(t, IsPastDate(tomorrow, now))
}
