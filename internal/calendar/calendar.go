// Package calendar holds the business-rule predicates the scheduling engine
// applies on top of a practitioner's own schedule: German national holidays
// and the global midday break window.
package calendar

import (
	"sync"
	"time"

	"terminplan/internal/timeutil"
)

// Holiday is one entry of the national holiday table.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Rules bundles the calendar predicates. The holiday table is computed per
// year on first use, so queries work for any year without maintenance.
type Rules struct {
	// Break window in minutes of day, half-open. Defaults to 12:00-13:00.
	BreakStart int
	BreakEnd   int

	mu    sync.Mutex
	years map[int][]Holiday
}

// NewRules returns rules with the default German midday break (12:00-13:00).
func NewRules() *Rules {
	return &Rules{
		BreakStart: timeutil.MustParseClock("12:00"),
		BreakEnd:   timeutil.MustParseClock("13:00"),
		years:      make(map[int][]Holiday),
	}
}

// NewRulesWithBreak returns rules with a custom midday break window.
func NewRulesWithBreak(breakStart, breakEnd int) *Rules {
	r := NewRules()
	r.BreakStart = breakStart
	r.BreakEnd = breakEnd
	return r
}

// HolidayOn reports whether the date is a German national holiday.
func (r *Rules) HolidayOn(date time.Time) (Holiday, bool) {
	for _, h := range r.holidaysFor(date.Year()) {
		if sameDate(h.Date, date) {
			return h, true
		}
	}
	return Holiday{}, false
}

// IsMiddayBreak reports whether a minute-of-day offset falls inside the
// global break window.
func (r *Rules) IsMiddayBreak(minute int) bool {
	return minute >= r.BreakStart && minute < r.BreakEnd
}

// IsMiddayBreakClock is IsMiddayBreak for "HH:MM" input.
func (r *Rules) IsMiddayBreakClock(clock string) (bool, error) {
	m, err := timeutil.ParseClock(clock)
	if err != nil {
		return false, err
	}
	return r.IsMiddayBreak(m), nil
}

// Holidays returns the full table for a year, computed on first access.
func (r *Rules) Holidays(year int) []Holiday {
	return r.holidaysFor(year)
}

func (r *Rules) holidaysFor(year int) []Holiday {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hs, ok := r.years[year]; ok {
		return hs
	}
	hs := computeHolidays(year)
	r.years[year] = hs
	return hs
}

// computeHolidays builds the nationwide table for one year: the fixed dates
// plus the Easter-derived movable feasts.
func computeHolidays(year int) []Holiday {
	easter := easterSunday(year)

	day := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
	}

	return []Holiday{
		{Date: day(time.January, 1), Name: "Neujahr"},
		{Date: easter.AddDate(0, 0, -2), Name: "Karfreitag"},
		{Date: easter.AddDate(0, 0, 1), Name: "Ostermontag"},
		{Date: day(time.May, 1), Name: "Tag der Arbeit"},
		{Date: easter.AddDate(0, 0, 39), Name: "Christi Himmelfahrt"},
		{Date: easter.AddDate(0, 0, 50), Name: "Pfingstmontag"},
		{Date: day(time.October, 3), Name: "Tag der Deutschen Einheit"},
		{Date: day(time.December, 25), Name: "1. Weihnachtstag"},
		{Date: day(time.December, 26), Name: "2. Weihnachtstag"},
	}
}

// easterSunday computes Easter for the Gregorian calendar (anonymous Gauss
// algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
