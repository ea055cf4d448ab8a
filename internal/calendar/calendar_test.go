package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasterSunday(t *testing.T) {
	// Known Easter dates.
	tests := []struct {
		year  int
		month time.Month
		day   int
	}{
		{2024, time.March, 31},
		{2025, time.April, 20},
		{2026, time.April, 5},
		{2027, time.March, 28},
	}

	for _, tt := range tests {
		got := easterSunday(tt.year)
		assert.Equal(t, tt.month, got.Month(), "year %d", tt.year)
		assert.Equal(t, tt.day, got.Day(), "year %d", tt.year)
	}
}

func TestHolidayOn(t *testing.T) {
	rules := NewRules()

	h, ok := rules.HolidayOn(time.Date(2026, time.October, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "Tag der Deutschen Einheit", h.Name)

	// Karfreitag 2026 = 2026-04-03 (Easter 2026-04-05 minus two days).
	h, ok = rules.HolidayOn(time.Date(2026, time.April, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "Karfreitag", h.Name)

	_, ok = rules.HolidayOn(time.Date(2026, time.October, 4, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestHolidayTableCoversAnyYear(t *testing.T) {
	rules := NewRules()
	for _, year := range []int{1999, 2025, 2042} {
		hs := rules.Holidays(year)
		assert.Len(t, hs, 9, "year %d", year)
		for _, h := range hs {
			assert.Equal(t, year, h.Date.Year())
		}
	}
}

func TestIsMiddayBreak(t *testing.T) {
	rules := NewRules()

	for clock, want := range map[string]bool{
		"11:59": false,
		"12:00": true,
		"12:30": true,
		"12:59": true,
		"13:00": false,
	} {
		got, err := rules.IsMiddayBreakClock(clock)
		require.NoError(t, err)
		assert.Equal(t, want, got, "clock %s", clock)
	}

	_, err := rules.IsMiddayBreakClock("25:00")
	assert.Error(t, err)
}

func TestCustomBreakWindow(t *testing.T) {
	rules := NewRulesWithBreak(13*60, 14*60)
	assert.False(t, rules.IsMiddayBreak(12*60+30))
	assert.True(t, rules.IsMiddayBreak(13*60+30))
}
