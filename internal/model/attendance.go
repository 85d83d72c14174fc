package model

import "time"

// Wire formats used by the remote attendance service.
const (
	DateFormat    = "2006-01-02"
	ClockFormat   = "15:04"
	DateTimeInput = "2006-01-02 15:04"
)

// AttendanceRecord is a remote attendance entry as returned by the service.
// An empty EndTime means the entry is still open ("clocked in").
type AttendanceRecord struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	BreakMinutes int    `json:"break_minutes"`
}

func (r AttendanceRecord) IsOpen() bool {
	return r.EndTime == ""
}

// DurationMinutes returns the worked minutes of a closed entry
// (end - start - break, floored at zero). Open or malformed entries count
// as zero so a single bad record cannot poison a daily total.
func (r AttendanceRecord) DurationMinutes() int {
	if r.IsOpen() {
		return 0
	}
	start, err := time.Parse(ClockFormat, r.StartTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse(ClockFormat, r.EndTime)
	if err != nil {
		return 0
	}
	minutes := int(end.Sub(start).Minutes()) - r.BreakMinutes
	if minutes < 0 {
		return 0
	}
	return minutes
}

// StartInstant resolves the entry's date and start clock time into an
// instant in the given timezone.
func (r AttendanceRecord) StartInstant(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateTimeInput, r.Date+" "+r.StartTime, loc)
}
