// Package slot defines the fixed daily grid of consultation hours and the
// date/time representations shared by the booking core.
package slot

import (
	"errors"
	"fmt"
	"time"
)

// Grid is the bookable consultation hours: a morning block and an afternoon
// block, hour granularity. Every slot time in the system is one of these.
var Grid = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"15:00", "16:00", "17:00", "18:00",
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var ErrBadTime = errors.New("time is not a valid HH:MM value")

// InGrid reports whether t (already normalized) is one of the fixed hours.
func InGrid(t string) bool {
	for _, g := range Grid {
		if g == t {
			return true
		}
	}
	return false
}

// Normalize parses raw as HH:MM or HH:MM:SS and returns the HH:MM form.
// Seconds, when present, are truncated.
func Normalize(raw string) (string, error) {
	if t, err := time.Parse(TimeLayout, raw); err == nil {
		return t.Format(TimeLayout), nil
	}
	if t, err := time.Parse("15:04:05", raw); err == nil {
		return t.Format(TimeLayout), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadTime, raw)
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// DateOnly truncates t to its calendar date in loc, re-anchored at midnight
// UTC so dates compare with ==/Before regardless of where they came from.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Booked is a (date, time) pair occupied by an active appointment. It carries
// no personal data so calendar UIs can render occupancy directly from it.
type Booked struct {
	Date time.Time
	Time string
}
