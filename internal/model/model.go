// Package model defines the scheduling domain: practitioners with recurring
// weekly shift templates, bookings against them, and the derived time slots
// the engine hands back to callers.
package model

import (
	"errors"
	"fmt"
	"time"

	"terminplan/internal/timeutil"
)

// Role classifies a practitioner. The set is open; unknown roles are carried
// through untouched.
type Role string

const (
	RoleDoctor      Role = "doctor"
	RoleHairdresser Role = "hairdresser"
	RoleTherapist   Role = "therapist"
	RoleMechanic    Role = "mechanic"
)

// Weekday indexes the week schedule, Monday first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf maps a calendar date to the schedule index.
func WeekdayOf(date time.Time) Weekday {
	// time.Weekday has Sunday=0; the schedule is Monday-first.
	return Weekday((int(date.Weekday()) + 6) % 7)
}

// ShiftWindow is one contiguous working interval within a day, with an
// optional break sub-interval. All offsets are minutes of day, half-open
// [Start, End).
type ShiftWindow struct {
	Start         int `yaml:"start" json:"start"`
	End           int `yaml:"end" json:"end"`
	BreakStart    int `yaml:"break_start,omitempty" json:"break_start,omitempty"`
	BreakEnd      int `yaml:"break_end,omitempty" json:"break_end,omitempty"`
	MaxConcurrent int `yaml:"max_concurrent,omitempty" json:"max_concurrent,omitempty"`
}

// HasBreak reports whether the window declares its own break.
func (w ShiftWindow) HasBreak() bool {
	return w.BreakEnd > w.BreakStart
}

// InBreak reports whether a minute falls inside the window's own break.
func (w ShiftWindow) InBreak(minute int) bool {
	return w.HasBreak() && minute >= w.BreakStart && minute < w.BreakEnd
}

// Contains reports whether [start, end) lies fully inside the window.
func (w ShiftWindow) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// Capacity returns MaxConcurrent with the default of 1 applied.
func (w ShiftWindow) Capacity() int {
	if w.MaxConcurrent <= 0 {
		return 1
	}
	return w.MaxConcurrent
}

func (w ShiftWindow) validate() error {
	if w.Start < 0 || w.End > timeutil.MinutesPerDay || w.Start >= w.End {
		return fmt.Errorf("window %s-%s: inverted or out of range",
			timeutil.FormatClock(w.Start), timeutil.FormatClock(w.End))
	}
	if w.HasBreak() || w.BreakStart != 0 || w.BreakEnd != 0 {
		if w.BreakStart >= w.BreakEnd {
			return fmt.Errorf("window %s-%s: inverted break",
				timeutil.FormatClock(w.Start), timeutil.FormatClock(w.End))
		}
		if w.BreakStart < w.Start || w.BreakEnd > w.End {
			return fmt.Errorf("window %s-%s: break outside window",
				timeutil.FormatClock(w.Start), timeutil.FormatClock(w.End))
		}
	}
	if w.MaxConcurrent < 0 {
		return errors.New("negative max_concurrent")
	}
	return nil
}

// WeekSchedule is the recurring weekly template: an ordered list of shift
// windows per weekday, Monday first. A weekday with no windows is a day off.
type WeekSchedule [7][]ShiftWindow

// WindowsOn returns the shift windows for a calendar date's weekday.
func (s WeekSchedule) WindowsOn(date time.Time) []ShiftWindow {
	return s[WeekdayOf(date)]
}

// Validate checks every weekday's windows: each well-formed, none overlapping
// a sibling on the same day.
func (s WeekSchedule) Validate() error {
	for day, windows := range s {
		for i, w := range windows {
			if err := w.validate(); err != nil {
				return fmt.Errorf("%s: %w", Weekday(day), err)
			}
			for j := i + 1; j < len(windows); j++ {
				if w.Start < windows[j].End && windows[j].Start < w.End {
					return fmt.Errorf("%s: windows %s-%s and %s-%s overlap",
						Weekday(day),
						timeutil.FormatClock(w.Start), timeutil.FormatClock(w.End),
						timeutil.FormatClock(windows[j].Start), timeutil.FormatClock(windows[j].End))
				}
			}
		}
	}
	return nil
}

// Practitioner is a bookable staff member. Immutable during a scheduling
// session; loaded and validated at configuration time.
type Practitioner struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Role         Role         `yaml:"role" json:"role"`
	Specialties  []string     `yaml:"specialties" json:"specialties"`
	Rating       float64      `yaml:"rating" json:"rating"`
	BookingCount int          `yaml:"booking_count" json:"booking_count"`
	Week         WeekSchedule `yaml:"week" json:"week"`
}

// Validate checks identity, rating range and the week template.
func (p *Practitioner) Validate() error {
	if p.ID == "" {
		return errors.New("practitioner without id")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("practitioner %s: rating %.1f out of range", p.ID, p.Rating)
	}
	if err := p.Week.Validate(); err != nil {
		return fmt.Errorf("practitioner %s: %w", p.ID, err)
	}
	return nil
}
