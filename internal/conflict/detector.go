// Package conflict validates a proposed booking against holidays, break
// windows, existing bookings and working hours. Conflicts are first-class
// results, not errors: callers render the reason and the alternatives.
package conflict

import (
	"fmt"
	"time"

	"terminplan/internal/calendar"
	"terminplan/internal/finder"
	"terminplan/internal/model"
	"terminplan/internal/timeutil"
)

// Kind is the closed set of conflict causes.
type Kind string

const (
	KindHoliday      Kind = "holiday"
	KindMiddayBreak  Kind = "midday_break"
	KindOverlap      Kind = "overlap"
	KindOutsideHours Kind = "outside_hours"
	KindShiftBreak   Kind = "shift_break"
)

// Result describes the outcome of a conflict check.
type Result struct {
	HasConflict bool             `json:"has_conflict"`
	Kind        Kind             `json:"kind,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Conflicting []model.Booking  `json:"conflicting,omitempty"`
	Suggestions []model.TimeSlot `json:"suggestions,omitempty"`
}

// Detector runs the ordered checks and probes for alternatives.
type Detector struct {
	rules  *calendar.Rules
	finder *finder.Finder
}

// New builds a detector; the finder validates suggested alternatives.
func New(rules *calendar.Rules, f *finder.Finder) *Detector {
	return &Detector{rules: rules, finder: f}
}

// Check validates a proposed booking start and duration. The checks run in a
// fixed order and the first hit wins: holiday, midday break, booking
// overlap, working-hours containment. When a practitioner record is supplied
// and a conflict is found, up to three alternative slots are attached.
func (d *Detector) Check(practitionerID string, start time.Time, durationMinutes int, bookings []model.Booking, p *model.Practitioner) Result {
	startMinute := start.Hour()*60 + start.Minute()
	endMinute := startMinute + durationMinutes

	result := d.check(practitionerID, start, startMinute, endMinute, bookings, p)
	if result.HasConflict && p != nil {
		result.Suggestions = d.suggest(p, start, durationMinutes, bookings)
	}
	return result
}

func (d *Detector) check(practitionerID string, start time.Time, startMinute, endMinute int, bookings []model.Booking, p *model.Practitioner) Result {
	if h, ok := d.rules.HolidayOn(start); ok {
		return Result{
			HasConflict: true,
			Kind:        KindHoliday,
			Reason:      fmt.Sprintf("public holiday: %s", h.Name),
		}
	}

	if d.rules.IsMiddayBreak(startMinute) {
		return Result{
			HasConflict: true,
			Kind:        KindMiddayBreak,
			Reason: fmt.Sprintf("during break (%s-%s)",
				timeutil.FormatClock(d.rules.BreakStart), timeutil.FormatClock(d.rules.BreakEnd)),
		}
	}

	active := model.ActiveOn(bookings, practitionerID, start)
	var overlapping []model.Booking
	for _, b := range active {
		if b.Overlaps(startMinute, endMinute) {
			overlapping = append(overlapping, b)
		}
	}
	if len(overlapping) > 0 {
		return Result{
			HasConflict: true,
			Kind:        KindOverlap,
			Reason:      fmt.Sprintf("overlaps %d existing booking(s)", len(overlapping)),
			Conflicting: overlapping,
		}
	}

	// Without the schedule there is nothing left to check against.
	if p == nil {
		return Result{}
	}

	for _, w := range p.Week.WindowsOn(start) {
		if !w.Contains(startMinute, endMinute) {
			continue
		}
		if w.HasBreak() && startMinute < w.BreakEnd && w.BreakStart < endMinute {
			return Result{
				HasConflict: true,
				Kind:        KindShiftBreak,
				Reason: fmt.Sprintf("during break (%s-%s)",
					timeutil.FormatClock(w.BreakStart), timeutil.FormatClock(w.BreakEnd)),
			}
		}
		return Result{}
	}

	return Result{
		HasConflict: true,
		Kind:        KindOutsideHours,
		Reason:      "outside working hours",
	}
}

// suggest probes 30-minute steps within two hours around the requested time,
// skipping the original, and keeps probes the finder confirms bookable.
func (d *Detector) suggest(p *model.Practitioner, start time.Time, durationMinutes int, bookings []model.Booking) []model.TimeSlot {
	var suggestions []model.TimeSlot
	for _, offset := range []int{30, -30, 60, -60, 90, -90, 120, -120} {
		probe := start.Add(time.Duration(offset) * time.Minute)
		if !sameDate(probe, start) {
			continue
		}

		slot := d.finder.NextAvailable(p, durationMinutes, probe, 1, bookings, 0)
		if slot == nil || !sameDate(slot.Date, start) || slot.StartTime != timeutil.FormatClock(probe.Hour()*60+probe.Minute()) {
			continue
		}

		suggestions = append(suggestions, *slot)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
