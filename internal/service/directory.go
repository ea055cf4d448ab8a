package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"terminplan/internal/model"
	"terminplan/internal/timeutil"
)

// The directory file uses "HH:MM" clock strings and weekday names; loading
// converts to the minute-offset, array-indexed week the engine runs on.

type windowSpec struct {
	Start         string `yaml:"start"`
	End           string `yaml:"end"`
	BreakStart    string `yaml:"break_start"`
	BreakEnd      string `yaml:"break_end"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

type practitionerSpec struct {
	ID           string                  `yaml:"id"`
	Name         string                  `yaml:"name"`
	Role         string                  `yaml:"role"`
	Specialties  []string                `yaml:"specialties"`
	Rating       float64                 `yaml:"rating"`
	BookingCount int                     `yaml:"booking_count"`
	Week         map[string][]windowSpec `yaml:"week"`
}

type directoryFile struct {
	Practitioners []practitionerSpec `yaml:"practitioners"`
}

var weekdayByName = map[string]model.Weekday{
	"monday":    model.Monday,
	"tuesday":   model.Tuesday,
	"wednesday": model.Wednesday,
	"thursday":  model.Thursday,
	"friday":    model.Friday,
	"saturday":  model.Saturday,
	"sunday":    model.Sunday,
}

// LoadDirectory reads and validates the practitioner directory from a YAML
// file. Any malformed clock string, unknown weekday or schedule-invariant
// violation fails the load; there is no silent defaulting.
func LoadDirectory(path string) ([]model.Practitioner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory converts raw YAML into validated practitioners.
func ParseDirectory(data []byte) ([]model.Practitioner, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}

	out := make([]model.Practitioner, 0, len(file.Practitioners))
	for _, spec := range file.Practitioners {
		p := model.Practitioner{
			ID:           spec.ID,
			Name:         spec.Name,
			Role:         model.Role(spec.Role),
			Specialties:  spec.Specialties,
			Rating:       spec.Rating,
			BookingCount: spec.BookingCount,
		}

		for name, windows := range spec.Week {
			day, ok := weekdayByName[name]
			if !ok {
				return nil, fmt.Errorf("practitioner %s: unknown weekday %q", spec.ID, name)
			}
			for _, ws := range windows {
				w, err := convertWindow(ws)
				if err != nil {
					return nil, fmt.Errorf("practitioner %s, %s: %w", spec.ID, name, err)
				}
				p.Week[day] = append(p.Week[day], w)
			}
		}

		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func convertWindow(ws windowSpec) (model.ShiftWindow, error) {
	var w model.ShiftWindow
	var err error

	if w.Start, err = timeutil.ParseClock(ws.Start); err != nil {
		return w, err
	}
	if w.End, err = timeutil.ParseClock(ws.End); err != nil {
		return w, err
	}
	if ws.BreakStart != "" || ws.BreakEnd != "" {
		if w.BreakStart, err = timeutil.ParseClock(ws.BreakStart); err != nil {
			return w, err
		}
		if w.BreakEnd, err = timeutil.ParseClock(ws.BreakEnd); err != nil {
			return w, err
		}
	}
	w.MaxConcurrent = ws.MaxConcurrent
	return w, nil
}
