package timeutil

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"12:00", 720, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:30", 0, true},
		{"12:5", 0, true},
		{"ab:cd", 0, true},
		{"12-30", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %d", tt.in, got)
				}
				if !errors.Is(err, ErrInvalidTimeFormat) {
					t.Errorf("error should wrap ErrInvalidTimeFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(570); got != "09:30" {
		t.Errorf("FormatClock(570) = %q, want 09:30", got)
	}
	if got := FormatClock(0); got != "00:00" {
		t.Errorf("FormatClock(0) = %q, want 00:00", got)
	}
	if got := FormatClock(1439); got != "23:59" {
		t.Errorf("FormatClock(1439) = %q, want 23:59", got)
	}
	// Overtime slots can run past midnight in theory; wrap instead of garbage.
	if got := FormatClock(1500); got != "01:00" {
		t.Errorf("FormatClock(1500) = %q, want 01:00", got)
	}
}

func TestClockRoundTrip(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			s := fmt.Sprintf("%02d:%02d", h, m)
			parsed, err := ParseClock(s)
			if err != nil {
				t.Fatalf("ParseClock(%q): %v", s, err)
			}
			if back := FormatClock(parsed); back != s {
				t.Fatalf("round trip %q -> %d -> %q", s, parsed, back)
			}
		}
	}
}
