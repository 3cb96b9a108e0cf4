// Package clock normalizes all date and time handling to the venue's fixed
// UTC offset. The venue runs on America/Bogota time, which has no DST, so a
// constant offset is exact and every instant can carry it explicitly.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// VenueZone is the venue's fixed offset (UTC-05:00, no DST).
var VenueZone = time.FixedZone("America/Bogota", -5*60*60)

// TimezoneOffset is the offset string reported in API responses.
const TimezoneOffset = "-05:00"

// Clock supplies venue-local now. Services take it as a dependency so tests
// can pin the current instant.
type Clock interface {
	Now() time.Time
}

// System is the production clock.
type System struct{}

func (System) Now() time.Time { return time.Now().In(VenueZone) }

// Fixed is a clock pinned to one instant, for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant.In(VenueZone) }

// ParseDate parses a YYYY-MM-DD date as midnight in the venue zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, VenueZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into hour and minute. Seconds
// are dropped: slot instants are canonical at minute precision, so two
// representations of the same wall time always compare equal.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, fmt.Errorf("invalid time %q; expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// At returns the instant for timeOfDay on the given date, in the venue zone.
func At(date time.Time, timeOfDay string) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	d := date.In(VenueZone)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, VenueZone), nil
}

// FormatInstant renders an instant as ISO-8601 with the explicit venue
// offset, never ambiguous local time.
func FormatInstant(t time.Time) string {
	return t.In(VenueZone).Format(time.RFC3339)
}

// FormatDate renders the calendar date of an instant in the venue zone.
func FormatDate(t time.Time) string {
	return t.In(VenueZone).Format(DateLayout)
}

// IsPastDate reports whether the calendar date is strictly before now's
// venue-local date. A booking for later today is not "in the past".
func IsPastDate(date, now time.Time) bool {
	return FormatDate(date) < FormatDate(now)
}
