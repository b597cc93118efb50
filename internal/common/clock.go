package common

import (
	"fmt"
	"time"
)

// Clock supplies the current wall-clock time in a fixed timezone.
// All schedule evaluation goes through a Clock so that the same bot
// serves a Japanese guild and a European one correctly.
type Clock struct {
	location *time.Location
	frozen   time.Time
}

// FixedClock returns a Clock frozen at t, for tests.
func FixedClock(t time.Time) Clock {
	return Clock{location: t.Location(), frozen: t}
}

// NewClock resolves an IANA timezone name. An empty name means UTC.
func NewClock(tz string) (Clock, error) {
	if tz == "" {
		return Clock{location: time.UTC}, nil
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return Clock{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return Clock{location: location}, nil
}

// Now returns the current time in the clock's timezone,
// truncated to whole seconds
func (c Clock) Now() time.Time {
	if !c.frozen.IsZero() {
		return c.frozen
	}
	loc := c.location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Truncate(time.Second)
}

// HHMM formats a time with minute granularity, e.g. "01:30"
func HHMM(t time.Time) string {
	return t.Format("15:04")
}

// Weekday returns the English day name, e.g. "Saturday"
func Weekday(t time.Time) string {
	return t.Weekday().String()
}

// ValidHHMM reports whether s is a zero-padded 24h "HH:MM" string
func ValidHHMM(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

var weekdays = map[string]struct{}{
	"Monday":    {},
	"Tuesday":   {},
	"Wednesday": {},
	"Thursday":  {},
	"Friday":    {},
	"Saturday":  {},
	"Sunday":    {},
}

// ValidWeekday reports whether s is an English day name as
// produced by Weekday
func ValidWeekday(s string) bool {
	_, ok := weekdays[s]
	return ok
}
