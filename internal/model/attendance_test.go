package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRecordIsOpen(t *testing.T) {
	open := AttendanceRecord{ID: "1", Date: "2024-01-01", StartTime: "08:00"}
	closed := AttendanceRecord{ID: "2", Date: "2024-01-01", StartTime: "08:00", EndTime: "17:00"}

	assert.True(t, open.IsOpen())
	assert.False(t, closed.IsOpen())
}

func TestAttendanceRecordDurationMinutes(t *testing.T) {
	tests := []struct {
		name   string
		record AttendanceRecord
		want   int
	}{
		{
			name:   "full day with lunch break",
			record: AttendanceRecord{Date: "2024-01-01", StartTime: "09:00", EndTime: "17:00", BreakMinutes: 30},
			want:   450,
		},
		{
			name:   "no break",
			record: AttendanceRecord{Date: "2024-01-01", StartTime: "08:00", EndTime: "12:00"},
			want:   240,
		},
		{
			name:   "break longer than span floors at zero",
			record: AttendanceRecord{Date: "2024-01-01", StartTime: "09:00", EndTime: "09:30", BreakMinutes: 60},
			want:   0,
		},
		{
			name:   "open record contributes nothing",
			record: AttendanceRecord{Date: "2024-01-01", StartTime: "09:00"},
			want:   0,
		},
		{
			name:   "malformed times contribute nothing",
			record: AttendanceRecord{Date: "2024-01-01", StartTime: "nine", EndTime: "17:00"},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.DurationMinutes())
		})
	}
}

func TestAttendanceRecordStartInstant(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	record := AttendanceRecord{Date: "2024-01-01", StartTime: "08:30"}

	instant, err := record.StartInstant(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 30, 0, 0, loc), instant)

	_, err = AttendanceRecord{Date: "2024-01-01", StartTime: "later"}.StartInstant(loc)
	assert.Error(t, err)
}
