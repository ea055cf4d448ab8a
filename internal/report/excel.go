// Package report renders a day's schedule and utilization as an Excel
// workbook, one sheet per practitioner.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"terminplan/internal/model"
)

// Entry pairs a practitioner with their generated day.
type Entry struct {
	Practitioner model.Practitioner
	Result       model.AvailabilityResult
}

var columns = []string{"Start", "End", "Available", "Bookings", "Capacity", "Demand", "Notes"}

// WriteDay writes the workbook for one date.
func WriteDay(w io.Writer, date time.Time, entries []Entry) error {
	file := excelize.NewFile()
	defer file.Close()

	for i, e := range entries {
		sheet := sheetName(e.Practitioner.Name, e.Practitioner.ID)
		if i == 0 {
			file.SetSheetName("Sheet1", sheet)
		} else if _, err := file.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(file, sheet, e); err != nil {
			return err
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(file *excelize.File, sheet string, e Entry) error {
	row := 1
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(columns), row)
		_ = file.SetCellStyle(sheet, start, end, style)
	}
	row++

	for _, s := range e.Result.Slots {
		values := []any{
			s.StartTime, s.EndTime, s.Available,
			s.CurrentBookings, s.Capacity, string(s.Demand), slotNotes(s),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	// Summary block below the slot table.
	row++
	summary := [][2]any{
		{"Total slots", len(e.Result.Slots)},
		{"Available", e.Result.TotalAvailable},
		{"Utilization %", e.Result.Utilization},
	}
	for _, pair := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := file.SetCellValue(sheet, keyCell, pair[0]); err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, valCell, pair[1]); err != nil {
			return err
		}
		row++
	}
	return nil
}

func slotNotes(s model.TimeSlot) string {
	switch {
	case s.IsHoliday:
		return "holiday"
	case s.IsBreak:
		return "break"
	case s.IsOvertime:
		return "overtime"
	default:
		return ""
	}
}

// sheetName keeps Excel's 31-character sheet name limit.
func sheetName(name, id string) string {
	s := name
	if s == "" {
		s = id
	}
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
