package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"terminplan/internal/model"
)

func TestWriteDay(t *testing.T) {
	date := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{
			Practitioner: model.Practitioner{ID: "p1", Name: "Anna Schmidt"},
			Result: model.AvailabilityResult{
				Slots: []model.TimeSlot{
					{StartTime: "09:00", EndTime: "09:30", Available: true, Capacity: 1, Demand: model.DemandHigh},
					{StartTime: "12:00", EndTime: "12:30", IsBreak: true, Demand: model.DemandMedium},
				},
				TotalAvailable: 1,
				Utilization:    50,
			},
		},
		{
			Practitioner: model.Practitioner{ID: "p2", Name: "A practitioner with an unreasonably long display name"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDay(&buf, date, entries))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	sheets := file.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Anna Schmidt", sheets[0])
	assert.LessOrEqual(t, len(sheets[1]), 31)

	rows, err := file.GetRows("Anna Schmidt")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Start", rows[0][0])
	assert.Equal(t, "09:00", rows[1][0])
	assert.Equal(t, "break", rows[2][6])
}
