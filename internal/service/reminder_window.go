package service

import (
	"fmt"
	"time"

	"github.com/peakform/coachdesk-api/pkg/config"
)

// Window is a half-open [Start, End) interval of lesson start times eligible
// for a reminder.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ComputeWindow derives the reminder eligibility window for "now". Pure, no
// I/O.
//
// rolling-24h yields [now+24h, now+25h) for frequent polling; the one hour
// width covers the polling gap. calendar-tomorrow yields the whole next
// calendar day in the reference location for a coarse once-daily batch.
func ComputeWindow(now time.Time, mode string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch mode {
	case config.ReminderModeRolling:
		start := now.Add(24 * time.Hour)
		return Window{Start: start, End: start.Add(time.Hour)}, nil
	case config.ReminderModeCalendar:
		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 0, 1)}, nil
	default:
		return Window{}, fmt.Errorf("unknown reminder mode: %q", mode)
	}
}

// dedupDay formats the calendar day of a lesson start in the reference
// location, the day half of the idempotency key.
func dedupDay(startsAt time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return startsAt.In(loc).Format("2006-01-02")
}

// dedupKey composes the in-process idempotency key for a lesson reminder.
func dedupKey(lessonID string, startsAt time.Time, loc *time.Location) string {
	return lessonID + "@" + dedupDay(startsAt, loc)
}
