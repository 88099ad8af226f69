package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSystemClock_ReturnsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}

func TestStartOfDayUTC(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 00:30 in Berlin on Mar 2 is still Mar 1 in UTC.
	in := time.Date(2025, 3, 2, 0, 30, 0, 0, berlin)
	assert.Equal(t, date(2025, 3, 1), StartOfDayUTC(in))
	assert.True(t, SameDayUTC(in, date(2025, 3, 1).Add(23*time.Hour)))
	assert.False(t, SameDayUTC(in, date(2025, 3, 2)))
}

func TestToUTCInstant(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name      string
		localDate string
		localTime string
		loc       *time.Location
		want      time.Time
	}{
		{"24h clock in New York winter", "2025-01-15", "18:30", ny, time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC)},
		{"12h clock in New York summer", "2025-07-04", "7:05 pm", ny, time.Date(2025, 7, 4, 23, 5, 0, 0, time.UTC)},
		{"seconds precision", "2025-07-04", "07:05:30", time.UTC, time.Date(2025, 7, 4, 7, 5, 30, 0, time.UTC)},
		{"empty time is midnight", "2025-02-01", "", ny, time.Date(2025, 2, 1, 5, 0, 0, 0, time.UTC)},
		{"nil location means UTC", "2025-02-01", "10:00", nil, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)},
		{"RFC3339 date takes local calendar day", "2025-02-01T03:00:00Z", "12:00", ny, time.Date(2025, 1, 31, 17, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUTCInstant(tt.localDate, tt.localTime, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestToUTCInstant_Invalid(t *testing.T) {
	_, err := ToUTCInstant("", "10:00", time.UTC)
	assert.Error(t, err)

	_, err = ToUTCInstant("15/01/2025", "10:00", time.UTC)
	assert.Error(t, err)

	_, err = ToUTCInstant("2025-01-15", "25:99", time.UTC)
	assert.Error(t, err)
}

func TestWithinWindow(t *testing.T) {
	lead := 60 * time.Minute
	tol := time.Minute

	assert.True(t, WithinWindow(59*time.Minute+30*time.Second, lead, tol))
	assert.True(t, WithinWindow(59*time.Minute, lead, tol), "lower bound is inclusive")
	assert.True(t, WithinWindow(61*time.Minute, lead, tol), "upper bound is inclusive")
	assert.False(t, WithinWindow(58*time.Minute+30*time.Second, lead, tol))
	assert.False(t, WithinWindow(62*time.Minute, lead, tol))
	assert.False(t, WithinWindow(-time.Minute, lead, tol))
}

func TestZones_Resolve(t *testing.T) {
	z, err := NewZones("Europe/London")
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", z.Resolve("", "Asia/Tokyo").String())
	assert.Equal(t, "America/Chicago", z.Resolve("Not/AZone", "America/Chicago").String())
	assert.Equal(t, "Europe/London", z.Resolve("", "Not/AZone").String())
	assert.Equal(t, "Europe/London", z.Resolve().String())
	// memoized lookups behave the same on the second call
	assert.Equal(t, "Europe/London", z.Resolve("Not/AZone").String())
	assert.Equal(t, "Asia/Tokyo", z.Resolve("Asia/Tokyo").String())
}

func TestNewZones_Defaults(t *testing.T) {
	z, err := NewZones("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), z.Default().String())

	_, err = NewZones("Mars/Olympus")
	assert.Error(t, err)
}

func TestFormatLocalDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	late := time.Date(2025, 1, 4, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-03", FormatLocalDate(late, ny))
	assert.Equal(t, "2025-01-04", FormatLocalDate(late, nil))
}
