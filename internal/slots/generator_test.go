package slots

import (
	"testing"
	"time"

	"terminplan/internal/calendar"
	"terminplan/internal/model"
)

// monday is 2026-08-31, a plain Monday with no holiday nearby.
var monday = time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)

func practitionerWith(windows ...model.ShiftWindow) *model.Practitioner {
	p := &model.Practitioner{ID: "p1", Name: "Dr. Weber", Role: model.RoleDoctor, Rating: 4.8}
	p.Week[model.Monday] = windows
	return p
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name          string
		windows       []model.ShiftWindow
		bookings      []model.Booking
		opts          Options
		wantTotal     int
		wantAvailable int
	}{
		{
			name:          "full day no bookings",
			windows:       []model.ShiftWindow{{Start: 9 * 60, End: 17 * 60, BreakStart: 12 * 60, BreakEnd: 13 * 60}},
			opts:          Options{Granularity: 30},
			wantTotal:     16,
			wantAvailable: 14, // 16 slots, 2 break slots blocked
		},
		{
			name:    "booking marks slot unavailable",
			windows: []model.ShiftWindow{{Start: 8 * 60, End: 12 * 60}},
			bookings: []model.Booking{
				{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "09:30", Status: model.StatusActive},
			},
			opts:          Options{Granularity: 30},
			wantTotal:     8,
			wantAvailable: 7,
		},
		{
			name:          "day off yields zero slots",
			windows:       nil,
			opts:          Options{Granularity: 30},
			wantTotal:     0,
			wantAvailable: 0,
		},
		{
			name:          "partial tail slot truncated",
			windows:       []model.ShiftWindow{{Start: 9 * 60, End: 10*60 + 45}},
			opts:          Options{Granularity: 30},
			wantTotal:     3, // 09:00, 09:30, 10:00; 10:30-11:00 would overrun
			wantAvailable: 3,
		},
		{
			name:    "capacity two absorbs one booking",
			windows: []model.ShiftWindow{{Start: 9 * 60, End: 10 * 60, MaxConcurrent: 2}},
			bookings: []model.Booking{
				{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "10:00", Status: model.StatusActive},
			},
			opts:          Options{Granularity: 30},
			wantTotal:     2,
			wantAvailable: 2,
		},
		{
			name:    "capacity exhausted",
			windows: []model.ShiftWindow{{Start: 9 * 60, End: 10 * 60, MaxConcurrent: 2}},
			bookings: []model.Booking{
				{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "10:00", Status: model.StatusActive},
				{ID: "b2", PractitionerID: "p1", Date: monday, Start: "09:00", End: "10:00", Status: model.StatusActive},
			},
			opts:          Options{Granularity: 30},
			wantTotal:     2,
			wantAvailable: 0,
		},
		{
			name:    "buffer blocks adjacent slot",
			windows: []model.ShiftWindow{{Start: 9 * 60, End: 11 * 60}},
			bookings: []model.Booking{
				{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "09:30", Status: model.StatusActive},
			},
			opts:          Options{Granularity: 30, Buffer: 15},
			wantTotal:     4,
			wantAvailable: 2, // 09:00 booked, 09:30 in buffer, 10:00 and 10:30 free
		},
		{
			name:    "inactive bookings ignored",
			windows: []model.ShiftWindow{{Start: 9 * 60, End: 10 * 60}},
			bookings: []model.Booking{
				{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "10:00", Status: model.StatusSick},
			},
			opts:          Options{Granularity: 30},
			wantTotal:     2,
			wantAvailable: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(calendar.NewRules())
			result := g.Generate(practitionerWith(tt.windows...), monday, tt.bookings, tt.opts)

			if len(result.Slots) != tt.wantTotal {
				t.Errorf("got %d slots, want %d", len(result.Slots), tt.wantTotal)
			}
			if result.TotalAvailable != tt.wantAvailable {
				t.Errorf("got %d available, want %d", result.TotalAvailable, tt.wantAvailable)
			}
			for _, s := range result.Slots {
				if s.CurrentBookings > s.Capacity && !s.IsBreak {
					t.Errorf("slot %s: bookings %d exceed capacity %d", s.StartTime, s.CurrentBookings, s.Capacity)
				}
			}
		})
	}
}

func TestGenerateHolidayHardStop(t *testing.T) {
	// 2026-10-03 (Tag der Deutschen Einheit) is a Saturday; give the
	// practitioner a Saturday shift so the holiday is the only blocker.
	holiday := time.Date(2026, time.October, 3, 0, 0, 0, 0, time.UTC)
	p := &model.Practitioner{ID: "p1"}
	p.Week[model.Saturday] = []model.ShiftWindow{{Start: 9 * 60, End: 13 * 60}}

	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, holiday, nil, Options{Granularity: 30})
	if len(result.Slots) != 0 || result.Utilization != 0 {
		t.Fatalf("holiday must hard-stop: got %d slots, utilization %d", len(result.Slots), result.Utilization)
	}

	opened := g.Generate(p, holiday, nil, Options{Granularity: 30, IncludeHolidays: true})
	if len(opened.Slots) != 8 {
		t.Fatalf("with IncludeHolidays got %d slots, want 8", len(opened.Slots))
	}
}

func TestGenerateBreakExclusion(t *testing.T) {
	p := practitionerWith(model.ShiftWindow{Start: 9 * 60, End: 17 * 60, BreakStart: 12 * 60, BreakEnd: 13 * 60})
	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, monday, nil, Options{Granularity: 30})
	for _, s := range result.Slots {
		if s.StartTime >= "12:00" && s.StartTime < "13:00" {
			if s.Available || !s.IsBreak || s.Capacity != 0 {
				t.Errorf("break slot %s must be blocked with zero capacity", s.StartTime)
			}
		}
	}
}

func TestGenerateMiddayBreakAppliesWithoutShiftBreak(t *testing.T) {
	// Window declares no break of its own; the global Mittagspause still blocks.
	p := practitionerWith(model.ShiftWindow{Start: 11 * 60, End: 14 * 60})
	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, monday, nil, Options{Granularity: 30})
	blocked := 0
	for _, s := range result.Slots {
		if s.IsBreak {
			blocked++
		}
	}
	if blocked != 2 {
		t.Errorf("expected 2 midday-break slots, got %d", blocked)
	}
}

func TestGenerateOvertime(t *testing.T) {
	p := practitionerWith(model.ShiftWindow{Start: 9 * 60, End: 20 * 60})
	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, monday, nil, Options{Granularity: 30, IncludeOvertime: true})

	var overtime []model.TimeSlot
	for _, s := range result.Slots {
		if s.IsOvertime {
			overtime = append(overtime, s)
		}
	}
	// 20:00 end, 2h extension capped at 22:00: four 30-minute slots.
	if len(overtime) != 4 {
		t.Fatalf("got %d overtime slots, want 4", len(overtime))
	}
	if overtime[len(overtime)-1].EndTime != "22:00" {
		t.Errorf("overtime must cap at 22:00, last slot ends %s", overtime[len(overtime)-1].EndTime)
	}
}

func TestGenerateOvertimeExcludesMiddayBreak(t *testing.T) {
	// Shift ends before noon; the overtime extension crosses the global
	// Mittagspause, which must stay blocked even past the window.
	p := practitionerWith(model.ShiftWindow{Start: 8 * 60, End: 11*60 + 30})
	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, monday, nil, Options{Granularity: 30, IncludeOvertime: true})

	byStart := make(map[string]model.TimeSlot, len(result.Slots))
	for _, s := range result.Slots {
		byStart[s.StartTime] = s
	}

	for _, start := range []string{"12:00", "12:30"} {
		s, ok := byStart[start]
		if !ok {
			t.Fatalf("missing overtime slot %s", start)
		}
		if s.Available || !s.IsBreak || s.Capacity != 0 {
			t.Errorf("overtime slot %s must be a blocked break slot, got available=%v isBreak=%v capacity=%d",
				start, s.Available, s.IsBreak, s.Capacity)
		}
	}
	if s := byStart["11:30"]; !s.Available || !s.IsOvertime {
		t.Errorf("11:30 overtime slot must be available, got %+v", s)
	}
	if s := byStart["13:00"]; !s.Available || !s.IsOvertime {
		t.Errorf("13:00 overtime slot must be available, got %+v", s)
	}
}

func TestGenerateOvertimeBufferApplies(t *testing.T) {
	// A booking ending exactly at shift end buffer-blocks the first
	// overtime slot, same as it would inside the windows.
	p := practitionerWith(model.ShiftWindow{Start: 9 * 60, End: 10 * 60})
	bookings := []model.Booking{
		{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:30", End: "10:00", Status: model.StatusActive},
	}
	g := NewGenerator(calendar.NewRules())

	result := g.Generate(p, monday, bookings, Options{Granularity: 30, Buffer: 15, IncludeOvertime: true})

	byStart := make(map[string]model.TimeSlot, len(result.Slots))
	for _, s := range result.Slots {
		byStart[s.StartTime] = s
	}
	if s := byStart["10:00"]; s.Available {
		t.Error("10:00 overtime slot falls in the booking buffer and must be blocked")
	}
	if s := byStart["10:30"]; !s.Available {
		t.Error("10:30 overtime slot is past the buffer and must be available")
	}
}

func TestGenerateHolidaySlotsTagged(t *testing.T) {
	holiday := time.Date(2026, time.October, 3, 0, 0, 0, 0, time.UTC)
	p := &model.Practitioner{ID: "p1"}
	p.Week[model.Saturday] = []model.ShiftWindow{{Start: 9 * 60, End: 13 * 60}}

	g := NewGenerator(calendar.NewRules())
	result := g.Generate(p, holiday, nil, Options{Granularity: 30, IncludeHolidays: true})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots with IncludeHolidays on a holiday")
	}
	for _, s := range result.Slots {
		if !s.IsHoliday {
			t.Errorf("slot %s on a public holiday must carry the holiday tag", s.StartTime)
		}
	}
	if result.NextAvailable != nil && !result.NextAvailable.IsHoliday {
		t.Error("next-available slot must carry the holiday tag too")
	}
}

func TestGenerateEndToEndExample(t *testing.T) {
	// One chair, Monday 08:00-12:00, one booking 09:00-09:30.
	p := practitionerWith(model.ShiftWindow{Start: 8 * 60, End: 12 * 60})
	bookings := []model.Booking{
		{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "09:30", Status: model.StatusActive},
	}

	g := NewGenerator(calendar.NewRules())
	result := g.Generate(p, monday, bookings, Options{Granularity: 30})

	byStart := make(map[string]model.TimeSlot, len(result.Slots))
	for _, s := range result.Slots {
		byStart[s.StartTime] = s
	}

	if s := byStart["09:00"]; s.Available || s.CurrentBookings != 1 {
		t.Errorf("09:00 slot: available=%v bookings=%d, want booked", s.Available, s.CurrentBookings)
	}
	if s := byStart["09:30"]; !s.Available {
		t.Error("09:30 slot must be available")
	}
}

func TestDemandBuckets(t *testing.T) {
	for minute, want := range map[int]model.DemandLevel{
		8 * 60:  model.DemandLow,
		9 * 60:  model.DemandHigh,
		11 * 60: model.DemandMedium,
		14 * 60: model.DemandHigh,
		16 * 60: model.DemandMedium,
		18 * 60: model.DemandLow,
	} {
		if got := demandAt(minute); got != want {
			t.Errorf("demandAt(%d) = %s, want %s", minute, got, want)
		}
	}
}

func TestFirstRun(t *testing.T) {
	p := practitionerWith(model.ShiftWindow{Start: 8 * 60, End: 12 * 60})
	bookings := []model.Booking{
		{ID: "b1", PractitionerID: "p1", Date: monday, Start: "09:00", End: "09:30", Status: model.StatusActive},
	}
	g := NewGenerator(calendar.NewRules())
	result := g.Generate(p, monday, bookings, Options{Granularity: 30})

	// From 09:00, the first free 30-minute run starts 09:30.
	run, ok := FirstRun(result.Slots, 1, 9*60)
	if !ok || run.StartTime != "09:30" {
		t.Fatalf("got %+v ok=%v, want run at 09:30", run, ok)
	}

	// A 90-minute request cannot start 08:00 (09:00 is booked); it lands
	// right after the booking instead.
	run, ok = FirstRun(result.Slots, 3, 0)
	if !ok || run.StartTime != "09:30" || run.EndTime != "11:00" {
		t.Fatalf("got %s-%s ok=%v, want 09:30-11:00", run.StartTime, run.EndTime, ok)
	}
}
