package slots

import (
	"terminplan/internal/model"
	"terminplan/internal/timeutil"
)

// Available filters a day's slots down to the bookable ones.
func Available(generated []model.TimeSlot) []model.TimeSlot {
	var out []model.TimeSlot
	for i := range generated {
		if generated[i].Available {
			out = append(out, generated[i])
		}
	}
	return out
}

// FirstRun finds the first chronological run of count consecutive available
// slots, each starting exactly where the previous one ends, and whose start
// is at or after minStart minutes of day. It returns the run's bounds merged
// into a single slot.
func FirstRun(generated []model.TimeSlot, count, minStart int) (model.TimeSlot, bool) {
	if count <= 0 {
		return model.TimeSlot{}, false
	}

	run := 0
	for i := range generated {
		start, err := timeutil.ParseClock(generated[i].StartTime)
		if err != nil || !generated[i].Available || start < minStart {
			run = 0
			continue
		}
		if run > 0 && generated[i].StartTime != generated[i-1].EndTime {
			run = 0
		}
		run++
		if run == count {
			first := generated[i-count+1]
			merged := first
			merged.EndTime = generated[i].EndTime
			return merged, true
		}
	}
	return model.TimeSlot{}, false
}
