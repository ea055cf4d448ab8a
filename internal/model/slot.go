package model

import "time"

// DemandLevel is a presentation hint bucketing slots by typical demand.
type DemandLevel string

const (
	DemandLow    DemandLevel = "low"
	DemandMedium DemandLevel = "medium"
	DemandHigh   DemandLevel = "high"
)

// TimeSlot is one discrete unit of a practitioner's day, derived from the
// schedule, bookings and calendar rules. Never persisted, never mutated
// independently; recompute or serve from cache.
type TimeSlot struct {
	PractitionerID  string      `json:"practitioner_id"`
	Date            time.Time   `json:"date"`
	StartTime       string      `json:"start_time"` // "HH:MM"
	EndTime         string      `json:"end_time"`   // "HH:MM"
	Available       bool        `json:"available"`
	Capacity        int         `json:"capacity"`
	CurrentBookings int         `json:"current_bookings"`
	IsHoliday       bool        `json:"is_holiday,omitempty"`
	IsBreak         bool        `json:"is_break,omitempty"` // Mittagspause or shift break
	IsOvertime      bool        `json:"is_overtime,omitempty"`
	Demand          DemandLevel `json:"demand"`
}

// AvailabilityResult is the slot generator's aggregate answer for one
// practitioner and date.
type AvailabilityResult struct {
	Slots          []TimeSlot `json:"slots"`
	TotalAvailable int        `json:"total_available"`
	NextAvailable  *TimeSlot  `json:"next_available,omitempty"`
	// Utilization is booked slots over total slots, rounded percent.
	Utilization int `json:"utilization"`
}
