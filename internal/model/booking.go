package model

import (
	"fmt"
	"time"

	"terminplan/internal/timeutil"
)

// BookingStatus is the closed set of booking states. Unavailability is
// expressed by flipping status, not by deleting the record.
type BookingStatus string

const (
	StatusActive      BookingStatus = "active"
	StatusHoliday     BookingStatus = "holiday"
	StatusSick        BookingStatus = "sick"
	StatusUnavailable BookingStatus = "unavailable"
)

// Valid reports whether the status is one of the known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusHoliday, StatusSick, StatusUnavailable:
		return true
	}
	return false
}

// Booking is one occupied interval of a practitioner's day. The engine never
// owns these records; callers pass the current set into every computation.
type Booking struct {
	ID             string        `json:"id"`
	PractitionerID string        `json:"practitioner_id"`
	Date           time.Time     `json:"date"`
	Start          string        `json:"start"` // "HH:MM"
	End            string        `json:"end"`   // "HH:MM"
	BreakStart     string        `json:"break_start,omitempty"`
	BreakEnd       string        `json:"break_end,omitempty"`
	Capacity       int           `json:"capacity,omitempty"`
	Status         BookingStatus `json:"status"`
	Note           string        `json:"note,omitempty"`
	// Fixed bookings are pinned and skipped by workload rebalancing.
	Fixed bool `json:"fixed,omitempty"`
}

// Interval parses the booking's clock strings into minute offsets.
func (b *Booking) Interval() (start, end int, err error) {
	start, err = timeutil.ParseClock(b.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("booking %s start: %w", b.ID, err)
	}
	end, err = timeutil.ParseClock(b.End)
	if err != nil {
		return 0, 0, fmt.Errorf("booking %s end: %w", b.ID, err)
	}
	return start, end, nil
}

// IsActive reports whether the booking occupies its interval.
func (b *Booking) IsActive() bool {
	return b.Status == StatusActive
}

// OnDate reports whether the booking lies on the given calendar date.
func (b *Booking) OnDate(date time.Time) bool {
	return b.Date.Year() == date.Year() &&
		b.Date.Month() == date.Month() &&
		b.Date.Day() == date.Day()
}

// CoversMinute reports whether the half-open booking interval covers the
// minute offset. Malformed clock strings count as not covering.
func (b *Booking) CoversMinute(minute int) bool {
	start, end, err := b.Interval()
	if err != nil {
		return false
	}
	return minute >= start && minute < end
}

// Overlaps reports whether the booking's [start, end) intersects the given
// half-open minute range.
func (b *Booking) Overlaps(start, end int) bool {
	bStart, bEnd, err := b.Interval()
	if err != nil {
		return false
	}
	return bStart < end && start < bEnd
}

// DurationMinutes returns the booked length, or 0 for malformed bookings.
func (b *Booking) DurationMinutes() int {
	start, end, err := b.Interval()
	if err != nil || end < start {
		return 0
	}
	return end - start
}

// ActiveOn filters bookings down to active ones for one practitioner and
// date, the working set of every slot computation.
func ActiveOn(bookings []Booking, practitionerID string, date time.Time) []Booking {
	var out []Booking
	for _, b := range bookings {
		if b.PractitionerID == practitionerID && b.IsActive() && b.OnDate(date) {
			out = append(out, b)
		}
	}
	return out
}
