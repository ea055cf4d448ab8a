// Package timeutil converts between "HH:MM" clock strings and minute-of-day
// offsets. All schedule math in the engine runs on minute offsets; the clock
// strings only appear at the edges.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat reports a clock string that is not a valid
// zero-padded 24h "HH:MM" value.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" into a minute-of-day offset (0..1439).
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bad hour", ErrInvalidTimeFormat, s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bad minute", ErrInvalidTimeFormat, s)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidTimeFormat, s)
	}

	return hour*60 + minute, nil
}

// FormatClock renders a minute-of-day offset as zero-padded "HH:MM".
// Offsets outside a single day wrap around midnight.
func FormatClock(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MustParseClock is ParseClock for trusted literals; it panics on bad input.
func MustParseClock(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}
