// Package slots turns a practitioner's weekly template, the current booking
// set and the calendar rules into discrete, annotated time slots for one day.
package slots

import (
	"math"
	"time"

	"terminplan/internal/calendar"
	"terminplan/internal/model"
	"terminplan/internal/timeutil"
)

// DefaultGranularity is the slot width used when the caller passes none.
const DefaultGranularity = 30

// OvertimePolicy bounds how far past the last shift window overtime slots
// may extend.
type OvertimePolicy struct {
	// MaxExtension is the longest stretch past the last window's end.
	MaxExtension int
	// HardCap is the minute of day no overtime slot may start at or after.
	HardCap int
}

// DefaultOvertimePolicy allows up to two hours of overtime, never past 22:00.
func DefaultOvertimePolicy() OvertimePolicy {
	return OvertimePolicy{
		MaxExtension: 120,
		HardCap:      timeutil.MustParseClock("22:00"),
	}
}

// Options controls one generation run.
type Options struct {
	// Granularity is the slot width in minutes; 0 means DefaultGranularity.
	Granularity int
	// Buffer extends every booking's end when judging availability, so a
	// follow-up cannot be placed back-to-back against a finished booking.
	Buffer int
	// IncludeHolidays generates slots on public holidays instead of the
	// empty-result hard stop.
	IncludeHolidays bool
	// IncludeOvertime extends past the last window per the overtime policy.
	IncludeOvertime bool
}

func (o Options) granularity() int {
	if o.Granularity <= 0 {
		return DefaultGranularity
	}
	return o.Granularity
}

// Generator produces availability results. Pure computation: identical inputs
// give identical results, which is what makes the cache a plain accelerator.
type Generator struct {
	rules    *calendar.Rules
	overtime OvertimePolicy
}

// NewGenerator builds a generator over the given calendar rules and the
// default overtime policy.
func NewGenerator(rules *calendar.Rules) *Generator {
	return &Generator{rules: rules, overtime: DefaultOvertimePolicy()}
}

// SetOvertimePolicy overrides the overtime bounds.
func (g *Generator) SetOvertimePolicy(p OvertimePolicy) {
	g.overtime = p
}

// Generate computes the day's slots for one practitioner. Bookings may span
// any practitioner and date; only active ones for this practitioner and date
// count.
func (g *Generator) Generate(p *model.Practitioner, date time.Time, bookings []model.Booking, opts Options) model.AvailabilityResult {
	_, isHoliday := g.rules.HolidayOn(date)
	if isHoliday && !opts.IncludeHolidays {
		// Hard stop: the whole day is closed, not filtered slot by slot.
		return model.AvailabilityResult{}
	}

	granularity := opts.granularity()
	active := model.ActiveOn(bookings, p.ID, date)
	windows := p.Week.WindowsOn(date)

	var generated []model.TimeSlot
	for _, w := range windows {
		for step := w.Start; step+granularity <= w.End; step += granularity {
			generated = append(generated, g.buildSlot(p, date, w, active, step, granularity, opts.Buffer))
		}
	}

	if opts.IncludeOvertime && len(windows) > 0 {
		generated = append(generated, g.overtimeSlots(p, date, windows, active, granularity, opts.Buffer)...)
	}

	if isHoliday {
		for i := range generated {
			generated[i].IsHoliday = true
		}
	}

	return aggregate(generated)
}

func (g *Generator) buildSlot(p *model.Practitioner, date time.Time, w model.ShiftWindow, active []model.Booking, step, granularity, buffer int) model.TimeSlot {
	slot := model.TimeSlot{
		PractitionerID: p.ID,
		Date:           date,
		StartTime:      timeutil.FormatClock(step),
		EndTime:        timeutil.FormatClock(step + granularity),
		Capacity:       w.Capacity(),
		Demand:         demandAt(step),
	}

	// A shift's own break and the global midday break both block the slot.
	if w.InBreak(step) || g.rules.IsMiddayBreak(step) {
		slot.IsBreak = true
		slot.Capacity = 0
		return slot
	}

	slot.CurrentBookings = countCovering(active, step)
	slot.Available = slot.CurrentBookings < w.Capacity() && !bufferBlocked(active, step, buffer)

	return slot
}

// overtimeSlots extends the day past the last window, bounded by the policy.
// Overtime capacity follows the last window of the day; the midday break and
// booking buffer apply just as they do inside the windows.
func (g *Generator) overtimeSlots(p *model.Practitioner, date time.Time, windows []model.ShiftWindow, active []model.Booking, granularity, buffer int) []model.TimeSlot {
	last := windows[0]
	for _, w := range windows[1:] {
		if w.End > last.End {
			last = w
		}
	}

	limit := last.End + g.overtime.MaxExtension
	if limit > g.overtime.HardCap {
		limit = g.overtime.HardCap
	}

	var out []model.TimeSlot
	for step := last.End; step+granularity <= limit; step += granularity {
		slot := model.TimeSlot{
			PractitionerID: p.ID,
			Date:           date,
			StartTime:      timeutil.FormatClock(step),
			EndTime:        timeutil.FormatClock(step + granularity),
			Capacity:       last.Capacity(),
			IsOvertime:     true,
			Demand:         demandAt(step),
		}

		if g.rules.IsMiddayBreak(step) {
			slot.IsBreak = true
			slot.Capacity = 0
		} else {
			slot.CurrentBookings = countCovering(active, step)
			slot.Available = slot.CurrentBookings < last.Capacity() && !bufferBlocked(active, step, buffer)
		}
		out = append(out, slot)
	}
	return out
}

// bufferBlocked reports whether the step falls into the buffer zone right
// after a booking's end, which blocks an immediately-adjacent rebooking.
// Coverage inside the booking itself is the capacity check's job.
func bufferBlocked(active []model.Booking, step, buffer int) bool {
	if buffer <= 0 {
		return false
	}
	for i := range active {
		_, end, err := active[i].Interval()
		if err != nil {
			continue
		}
		if step >= end && step < end+buffer {
			return true
		}
	}
	return false
}

func countCovering(active []model.Booking, minute int) int {
	n := 0
	for i := range active {
		if active[i].CoversMinute(minute) {
			n++
		}
	}
	return n
}

// demandAt buckets the time of day: morning and mid-afternoon peaks are
// high, outside 9-18 is low, the rest medium. Presentation hint only.
func demandAt(minute int) model.DemandLevel {
	hour := minute / 60
	switch {
	case (hour >= 9 && hour < 11) || (hour >= 14 && hour < 16):
		return model.DemandHigh
	case hour < 9 || hour >= 18:
		return model.DemandLow
	default:
		return model.DemandMedium
	}
}

func aggregate(generated []model.TimeSlot) model.AvailabilityResult {
	result := model.AvailabilityResult{Slots: generated}
	booked := 0
	for i := range generated {
		if generated[i].Available {
			result.TotalAvailable++
			if result.NextAvailable == nil {
				slot := generated[i]
				result.NextAvailable = &slot
			}
		}
		if generated[i].CurrentBookings > 0 {
			booked++
		}
	}
	if len(generated) > 0 {
		result.Utilization = int(math.Round(float64(booked) / float64(len(generated)) * 100))
	}
	return result
}
