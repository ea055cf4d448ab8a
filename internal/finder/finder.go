// Package finder scans forward for bookable slots and ranks alternative
// practitioners for a requested service.
package finder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"terminplan/internal/model"
	"terminplan/internal/slots"
	"terminplan/internal/timeutil"
)

// ScanGranularity is the fixed slot width the forward scan works at.
const ScanGranularity = 30

// DefaultHorizonDays bounds the forward scan when the caller passes none.
const DefaultHorizonDays = 14

// Finder wraps the slot generator with cross-day search.
type Finder struct {
	gen *slots.Generator
	now func() time.Time
}

// New builds a finder over the given generator.
func New(gen *slots.Generator) *Finder {
	return &Finder{gen: gen, now: time.Now}
}

// SetClock injects a clock for tests; it governs the past-slot filter.
func (f *Finder) SetClock(now func() time.Time) {
	f.now = now
}

// NextAvailable returns the first slot sequence long enough for the
// requested duration, scanning day by day from the given start, or nil if
// the horizon holds none. The returned slot spans the full duration.
func (f *Finder) NextAvailable(p *model.Practitioner, durationMinutes int, from time.Time, maxDaysAhead int, bookings []model.Booking, buffer int) *model.TimeSlot {
	if durationMinutes <= 0 {
		return nil
	}
	if maxDaysAhead <= 0 {
		maxDaysAhead = DefaultHorizonDays
	}
	needed := (durationMinutes + ScanGranularity - 1) / ScanGranularity

	for day := 0; day < maxDaysAhead; day++ {
		date := from.AddDate(0, 0, day)
		minStart := 0
		if day == 0 {
			// No slots before the requested start on the first day; also
			// never offer slots already in the past.
			minStart = from.Hour()*60 + from.Minute()
			if now := f.now(); sameDate(date, now) {
				if past := now.Hour()*60 + now.Minute(); past > minStart {
					minStart = past
				}
			}
		}

		result := f.gen.Generate(p, date, bookings, slots.Options{Granularity: ScanGranularity, Buffer: buffer})
		if run, ok := slots.FirstRun(result.Slots, needed, minStart); ok {
			return &run
		}
	}
	return nil
}

// Match is one ranked alternative practitioner.
type Match struct {
	Practitioner model.Practitioner `json:"practitioner"`
	Score        int                `json:"score"`
	// Slots holds up to three available slots near the preferred time.
	Slots   []model.TimeSlot `json:"slots"`
	Reasons []string         `json:"reasons"`
}

// BestMatch ranks practitioners whose specialties match the service type and
// returns the top three by score. excludeID drops one practitioner from
// consideration, e.g. the one the caller just failed to book.
func (f *Finder) BestMatch(serviceType string, preferred time.Time, durationMinutes int, practitioners []model.Practitioner, bookings []model.Booking, excludeID string) []Match {
	preferredMinute := preferred.Hour()*60 + preferred.Minute()

	var matches []Match
	for i := range practitioners {
		p := practitioners[i]
		if p.ID == excludeID || !specialtyMatches(p.Specialties, serviceType) {
			continue
		}
		matches = append(matches, f.scoreCandidate(p, preferred, preferredMinute, durationMinutes, bookings))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

func (f *Finder) scoreCandidate(p model.Practitioner, preferred time.Time, preferredMinute, durationMinutes int, bookings []model.Booking) Match {
	m := Match{Practitioner: p}

	ratingScore := int(p.Rating * 10)
	if ratingScore > 50 {
		ratingScore = 50
	}
	m.Score += ratingScore
	m.Reasons = append(m.Reasons, fmt.Sprintf("rating %.1f (+%d)", p.Rating, ratingScore))

	experience := p.BookingCount / 100
	if experience > 20 {
		experience = 20
	}
	if experience > 0 {
		m.Score += experience
		m.Reasons = append(m.Reasons, fmt.Sprintf("%d completed bookings (+%d)", p.BookingCount, experience))
	}

	result := f.gen.Generate(&p, preferred, bookings, slots.Options{Granularity: ScanGranularity})
	available := slots.Available(result.Slots)

	if nearby := nearbySlots(available, preferredMinute, 120); len(nearby) > 0 {
		m.Score += 30
		m.Reasons = append(m.Reasons, "slot within 2 hours of preferred time (+30)")
		if len(nearby) > 3 {
			nearby = nearby[:3]
		}
		m.Slots = nearby
	} else if len(available) > 0 {
		top := available
		if len(top) > 3 {
			top = top[:3]
		}
		m.Slots = top
	}

	if len(available) > 0 {
		m.Score += 10
		m.Reasons = append(m.Reasons, "available on the requested day (+10)")
	}

	m.Score += 10
	m.Reasons = append(m.Reasons, "specialty match (+10)")

	if result.Utilization < 50 {
		m.Score += 5
		m.Reasons = append(m.Reasons, "low utilization (+5)")
	}

	if m.Score > 100 {
		m.Score = 100
	}
	return m
}

// nearbySlots returns available slots within the window around the preferred
// minute, closest first.
func nearbySlots(available []model.TimeSlot, preferredMinute, window int) []model.TimeSlot {
	type scored struct {
		slot model.TimeSlot
		dist int
	}
	var near []scored
	for _, s := range available {
		start, err := timeutil.ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		dist := start - preferredMinute
		if dist < 0 {
			dist = -dist
		}
		if dist <= window {
			near = append(near, scored{slot: s, dist: dist})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })

	out := make([]model.TimeSlot, len(near))
	for i, n := range near {
		out[i] = n.slot
	}
	return out
}

func specialtyMatches(specialties []string, serviceType string) bool {
	needle := strings.ToLower(serviceType)
	if needle == "" {
		return false
	}
	for _, s := range specialties {
		hay := strings.ToLower(s)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
