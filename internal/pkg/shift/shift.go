// Package shift holds the time-of-day parsing and night-shift policy shared by
// the merger and the schedule gate. Every caller classifies shifts through this
// package so the thresholds live in exactly one place.
package shift

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EarlyTimeoutCutoffHour is the exclusive hour before which a TIME_OUT is
// treated as the tail of the previous day's night shift.
const EarlyTimeoutCutoffHour = 6

// Placeholder is the value the attendance API sends for a missing time.
const Placeholder = "-"

var ErrInvalidTimeFormat = errors.New("invalid time format")

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Parse parses "HH:MM" or "HH:MM:SS". Unpadded components such as "7:5" are
// accepted. The seconds component only has to be present and numeric.
func Parse(s string) (TimeOfDay, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hour, err := parseComponent(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q: hour: %v", ErrInvalidTimeFormat, s, err)
	}
	minute, err := parseComponent(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q: minute: %v", ErrInvalidTimeFormat, s, err)
	}
	if len(parts) == 3 {
		if _, err := parseComponent(parts[2]); err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: %q: second: %v", ErrInvalidTimeFormat, s, err)
		}
	}

	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: hour out of range", ErrInvalidTimeFormat, s)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: minute out of range", ErrInvalidTimeFormat, s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func parseComponent(p string) (int, error) {
	if p == "" {
		return 0, errors.New("empty component")
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", p)
		}
	}
	return strconv.Atoi(p)
}

// IsPlaceholder reports whether s carries no time value.
func IsPlaceholder(s string) bool {
	v := strings.TrimSpace(s)
	return v == "" || v == Placeholder
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

// FromTime extracts the wall-clock time of t.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// IsNightShift reports whether a scheduled window crosses midnight.
func IsNightShift(in, out TimeOfDay) bool {
	return out.Hour < in.Hour
}

// ClassifyStrings parses both bounds and classifies the shift. On a parse
// error it returns false together with the error, so callers can fall back to
// treating the day as a regular one.
func ClassifyStrings(in, out string) (bool, error) {
	start, err := Parse(in)
	if err != nil {
		return false, err
	}
	end, err := Parse(out)
	if err != nil {
		return false, err
	}
	return IsNightShift(start, end), nil
}

// IsEarlyTimeout reports whether a TIME_OUT at t belongs to the previous day.
func IsEarlyTimeout(t TimeOfDay) bool {
	return t.Hour < EarlyTimeoutCutoffHour
}
