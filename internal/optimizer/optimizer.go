// Package optimizer analyzes booked days for wasted gaps and uneven team
// workload. All output is advisory; nothing here mutates a booking.
package optimizer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"terminplan/internal/model"
	"terminplan/internal/timeutil"
)

// Gaps smaller than the minimum are unusable dead time, larger ones are
// treated as deliberate slack.
const (
	minReducibleGap = 30
	maxReducibleGap = 60
)

// Gap is idle time between two consecutive active bookings.
type Gap struct {
	Start     string `json:"start"` // "HH:MM"
	End       string `json:"end"`
	Minutes   int    `json:"minutes"`
	Reducible bool   `json:"reducible"`
	AfterID   string `json:"after_id"`
	BeforeID  string `json:"before_id"`
}

// Improvements estimates what closing the reducible gaps would buy.
type Improvements struct {
	GapReductionMinutes int `json:"gap_reduction_minutes"`
	// GroupingBenefit counts booking pairs that consolidation would join.
	GroupingBenefit  int `json:"grouping_benefit"`
	UtilizationDelta int `json:"utilization_delta"` // percentage points
}

// Analysis is the advisory result for one practitioner's day.
type Analysis struct {
	Gaps         []Gap        `json:"gaps"`
	Improvements Improvements `json:"improvements"`
	Suggestions  []string     `json:"suggestions"`
}

// Optimizer is stateless; it exists so callers hold one value for both the
// day analysis and the workload balancer.
type Optimizer struct{}

// New returns an optimizer.
func New() *Optimizer {
	return &Optimizer{}
}

// AnalyzeDay inspects the gaps between a practitioner's consecutive active
// bookings on one date and suggests consolidation.
func (o *Optimizer) AnalyzeDay(p *model.Practitioner, date time.Time, bookings []model.Booking) Analysis {
	active := sortedByStart(model.ActiveOn(bookings, p.ID, date))

	var analysis Analysis
	for i := 1; i < len(active); i++ {
		_, prevEnd, err := active[i-1].Interval()
		if err != nil {
			continue
		}
		curStart, _, err := active[i].Interval()
		if err != nil {
			continue
		}

		minutes := curStart - prevEnd
		if minutes <= 0 {
			continue
		}

		gap := Gap{
			Start:     timeutil.FormatClock(prevEnd),
			End:       timeutil.FormatClock(curStart),
			Minutes:   minutes,
			Reducible: minutes >= minReducibleGap && minutes <= maxReducibleGap,
			AfterID:   active[i-1].ID,
			BeforeID:  active[i].ID,
		}
		analysis.Gaps = append(analysis.Gaps, gap)

		if gap.Reducible {
			analysis.Improvements.GapReductionMinutes += minutes
			analysis.Improvements.GroupingBenefit++
			analysis.Suggestions = append(analysis.Suggestions, fmt.Sprintf(
				"move booking %s from %s to %s to close a %d-minute gap",
				active[i].ID, active[i].Start, gap.Start, minutes))
		}
	}

	if avail := availableMinutesOn(p, date); avail > 0 {
		analysis.Improvements.UtilizationDelta = int(math.Round(
			float64(analysis.Improvements.GapReductionMinutes) / float64(avail) * 100))
	}
	return analysis
}

// Load is one practitioner's booked share of their working day.
type Load struct {
	PractitionerID   string  `json:"practitioner_id"`
	BookedMinutes    int     `json:"booked_minutes"`
	AvailableMinutes int     `json:"available_minutes"`
	Ratio            float64 `json:"ratio"`
}

// OffloadCandidate flags an overloaded practitioner with the bookings that
// could move elsewhere, flexible (non-fixed) ones first.
type OffloadCandidate struct {
	Load        Load            `json:"load"`
	TeamAverage float64         `json:"team_average"`
	Movable     []model.Booking `json:"movable"`
}

// overloadThreshold is how far above the team average (in ratio points) a
// practitioner must sit to be flagged.
const overloadThreshold = 0.10

// BalanceWorkload compares each practitioner's booked/available ratio on a
// date against the team average and flags the ones sitting more than ten
// percentage points above it.
func (o *Optimizer) BalanceWorkload(practitioners []model.Practitioner, date time.Time, bookings []model.Booking) []OffloadCandidate {
	var loads []Load
	for i := range practitioners {
		avail := availableMinutesOn(&practitioners[i], date)
		if avail == 0 {
			continue // day off, not part of the team average
		}
		booked := 0
		for _, b := range model.ActiveOn(bookings, practitioners[i].ID, date) {
			booked += b.DurationMinutes()
		}
		loads = append(loads, Load{
			PractitionerID:   practitioners[i].ID,
			BookedMinutes:    booked,
			AvailableMinutes: avail,
			Ratio:            float64(booked) / float64(avail),
		})
	}
	if len(loads) == 0 {
		return nil
	}

	sum := 0.0
	for _, l := range loads {
		sum += l.Ratio
	}
	avg := sum / float64(len(loads))

	var candidates []OffloadCandidate
	for _, l := range loads {
		if l.Ratio <= avg+overloadThreshold {
			continue
		}
		candidates = append(candidates, OffloadCandidate{
			Load:        l,
			TeamAverage: avg,
			Movable:     movableBookings(bookings, l.PractitionerID, date),
		})
	}
	return candidates
}

func movableBookings(bookings []model.Booking, practitionerID string, date time.Time) []model.Booking {
	var movable []model.Booking
	for _, b := range model.ActiveOn(bookings, practitionerID, date) {
		if !b.Fixed {
			movable = append(movable, b)
		}
	}
	return sortedByStart(movable)
}

// availableMinutesOn sums the practitioner's window lengths for the date's
// weekday, minus declared shift breaks.
func availableMinutesOn(p *model.Practitioner, date time.Time) int {
	total := 0
	for _, w := range p.Week.WindowsOn(date) {
		total += w.End - w.Start
		if w.HasBreak() {
			total -= w.BreakEnd - w.BreakStart
		}
	}
	return total
}

func sortedByStart(bookings []model.Booking) []model.Booking {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Start < bookings[j].Start
	})
	return bookings
}
