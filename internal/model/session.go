package model

import "time"

// Session is the locally tracked in-progress clock-in. AttendanceID is the
// identifier the remote service assigned to the open entry; StartTime is
// immutable once set.
type Session struct {
	AttendanceID string    `json:"attendance_id"`
	StartTime    time.Time `json:"start_time"`
}

// Day returns the calendar date the session belongs to, in the configured
// timezone. A session must never span two calendar days.
func (s Session) Day(loc *time.Location) string {
	return s.StartTime.In(loc).Format(DateFormat)
}
