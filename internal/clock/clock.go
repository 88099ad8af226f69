// Package clock is the single place where the scheduler reads "now", converts zone-local
// wall-clock fields into absolute instants and decides whether something is due.
package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clock returns the current instant. Implementations must return UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// DefaultZoneName is used when neither the event nor the user carries a time zone.
const DefaultZoneName = "UTC"

// DateLayout is the storage format of local dates.
const DateLayout = "2006-01-02"

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "03:04 PM", "3:04PM", "03:04PM"}

// StartOfDayUTC returns midnight UTC of the day t falls on in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDayUTC reports whether a and b fall on the same UTC calendar day.
func SameDayUTC(a, b time.Time) bool {
	return StartOfDayUTC(a).Equal(StartOfDayUTC(b))
}

// ToUTCInstant interprets localDate ("2006-01-02" or RFC3339) and localTime ("15:04",
// "15:04:05" or "3:04 PM") as wall-clock values in loc and returns the absolute instant.
// An empty localTime means midnight.
func ToUTCInstant(localDate, localTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := ParseLocalDate(localDate, loc)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, sec := 0, 0, 0
	if lt := strings.TrimSpace(localTime); lt != "" {
		parsed, err := parseLocalTime(lt)
		if err != nil {
			return time.Time{}, err
		}
		hour, minute, sec = parsed.Clock()
	}

	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, sec, 0, loc).UTC(), nil
}

// ParseLocalDate reads a "2006-01-02" or RFC3339 date as a calendar day in loc.
func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty local date")
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local date %q", s)
	}
	return t.In(loc), nil
}

func parseLocalTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid local time %q", s)
}

// FormatLocalDate renders t as a local date in loc.
func FormatLocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// WithinWindow reports whether delta lies in [lead-tolerance, lead+tolerance].
func WithinWindow(delta, lead, tolerance time.Duration) bool {
	return delta >= lead-tolerance && delta <= lead+tolerance
}

// Zones resolves IANA zone names with a fallback. Loaded locations are memoized.
type Zones struct {
	fallback *time.Location
	mu       sync.RWMutex
	cache    map[string]*time.Location
}

// NewZones builds a resolver whose fallback is defaultName, or UTC when defaultName is empty.
func NewZones(defaultName string) (*Zones, error) {
	z := &Zones{fallback: time.UTC, cache: make(map[string]*time.Location)}
	if defaultName == "" {
		defaultName = DefaultZoneName
	}
	loc, err := time.LoadLocation(defaultName)
	if err != nil {
		return nil, fmt.Errorf("invalid default time zone %q: %w", defaultName, err)
	}
	z.fallback = loc
	return z, nil
}

// Default returns the fallback location.
func (z *Zones) Default() *time.Location { return z.fallback }

// Resolve returns the first name that loads as a location, else the fallback.
// Unknown names are skipped.
func (z *Zones) Resolve(names ...string) *time.Location {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		z.mu.RLock()
		loc, ok := z.cache[name]
		z.mu.RUnlock()
		if ok {
			if loc != nil {
				return loc
			}
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			loc = nil
		}
		z.mu.Lock()
		z.cache[name] = loc
		z.mu.Unlock()
		if loc != nil {
			return loc
		}
	}
	return z.fallback
}
