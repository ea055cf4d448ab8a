package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminplan/internal/model"
)

var day = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

func booking(id, pid, start, end string, fixed bool) model.Booking {
	return model.Booking{
		ID: id, PractitionerID: pid, Date: day,
		Start: start, End: end, Status: model.StatusActive, Fixed: fixed,
	}
}

func withWindow(id string, start, end int) model.Practitioner {
	p := model.Practitioner{ID: id, Rating: 4.0}
	p.Week[model.WeekdayOf(day)] = []model.ShiftWindow{{Start: start, End: end}}
	return p
}

func TestAnalyzeDayGaps(t *testing.T) {
	p := withWindow("p1", 8*60, 18*60)
	bookings := []model.Booking{
		booking("b1", "p1", "09:00", "10:00", false),
		booking("b2", "p1", "10:45", "11:30", false), // 45-minute gap: reducible
		booking("b3", "p1", "11:45", "12:30", false), // 15-minute gap: too small
		booking("b4", "p1", "14:00", "15:00", false), // 90-minute gap: deliberate slack
	}

	o := New()
	analysis := o.AnalyzeDay(&p, day, bookings)

	require.Len(t, analysis.Gaps, 3)
	assert.True(t, analysis.Gaps[0].Reducible)
	assert.False(t, analysis.Gaps[1].Reducible)
	assert.False(t, analysis.Gaps[2].Reducible)

	assert.Equal(t, 45, analysis.Improvements.GapReductionMinutes)
	assert.Equal(t, 1, analysis.Improvements.GroupingBenefit)
	// 45 of 600 available minutes, rounded.
	assert.Equal(t, 8, analysis.Improvements.UtilizationDelta)

	require.Len(t, analysis.Suggestions, 1)
	assert.Contains(t, analysis.Suggestions[0], "b2")
	assert.Contains(t, analysis.Suggestions[0], "45-minute gap")
}

func TestAnalyzeDayNoBookings(t *testing.T) {
	p := withWindow("p1", 9*60, 17*60)
	analysis := New().AnalyzeDay(&p, day, nil)

	assert.Empty(t, analysis.Gaps)
	assert.Empty(t, analysis.Suggestions)
	assert.Zero(t, analysis.Improvements.GapReductionMinutes)
}

func TestAnalyzeDayNeverMutatesBookings(t *testing.T) {
	p := withWindow("p1", 8*60, 18*60)
	bookings := []model.Booking{
		booking("b1", "p1", "09:00", "10:00", false),
		booking("b2", "p1", "10:45", "11:30", false),
	}
	before := make([]model.Booking, len(bookings))
	copy(before, bookings)

	New().AnalyzeDay(&p, day, bookings)
	assert.Equal(t, before, bookings)
}

func TestBalanceWorkload(t *testing.T) {
	// Both work 8 hours; p1 is nearly full, p2 nearly idle.
	p1 := withWindow("p1", 9*60, 17*60)
	p2 := withWindow("p2", 9*60, 17*60)

	bookings := []model.Booking{
		booking("b1", "p1", "09:00", "13:00", true), // fixed, cannot move
		booking("b2", "p1", "13:00", "16:00", false),
		booking("b3", "p2", "09:00", "10:00", false),
	}

	o := New()
	candidates := o.BalanceWorkload([]model.Practitioner{p1, p2}, day, bookings)

	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "p1", c.Load.PractitionerID)
	assert.Greater(t, c.Load.Ratio, c.TeamAverage+0.10)

	require.Len(t, c.Movable, 1, "fixed bookings must not be offered for offloading")
	assert.Equal(t, "b2", c.Movable[0].ID)
}

func TestBalanceWorkloadEvenTeam(t *testing.T) {
	p1 := withWindow("p1", 9*60, 17*60)
	p2 := withWindow("p2", 9*60, 17*60)

	bookings := []model.Booking{
		booking("b1", "p1", "09:00", "11:00", false),
		booking("b2", "p2", "09:00", "11:00", false),
	}

	assert.Empty(t, New().BalanceWorkload([]model.Practitioner{p1, p2}, day, bookings))
}

func TestBalanceWorkloadSkipsDaysOff(t *testing.T) {
	p1 := withWindow("p1", 9*60, 17*60)
	p2 := model.Practitioner{ID: "p2", Rating: 4.0} // no windows at all

	bookings := []model.Booking{
		booking("b1", "p1", "09:00", "10:00", false),
	}

	// p2 must not drag the average to zero and flag p1 spuriously.
	candidates := New().BalanceWorkload([]model.Practitioner{p1, p2}, day, bookings)
	assert.Empty(t, candidates)
}
