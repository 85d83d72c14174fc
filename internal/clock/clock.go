// Package clock provides the time source and the calendar arithmetic the
// tracker and scheduler share: "what day is it", "is this instant today",
// and "how long until the end of the working day".
package clock

import (
	"time"

	"github.com/hbeckers/punchd/internal/model"
)

// ForceStopClock is the time-of-day an open entry is closed at when it would
// otherwise straddle midnight. Fixed rather than "now" so a late-firing timer
// can never produce a day-spanning entry.
const ForceStopClock = "23:59"

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Location() *time.Location {
	return c.loc
}

// Today returns the current calendar date in the clock's timezone.
func Today(c Clock) string {
	return c.Now().In(c.Location()).Format(model.DateFormat)
}

// SameDay reports whether t falls on the current calendar date in the
// clock's timezone.
func SameDay(c Clock, t time.Time) bool {
	now := c.Now().In(c.Location())
	t = t.In(c.Location())
	return now.Year() == t.Year() && now.YearDay() == t.YearDay()
}

// DayEnd returns 23:59:59 of the current calendar day in the clock's
// timezone, the instant the force-stop timer targets.
func DayEnd(c Clock) time.Time {
	now := c.Now().In(c.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, c.Location())
}

// UntilDayEnd returns the remaining time until 23:59:59 today. Non-positive
// results mean the boundary has effectively passed already.
func UntilDayEnd(c Clock) time.Duration {
	return DayEnd(c).Sub(c.Now())
}
