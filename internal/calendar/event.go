// Package calendar holds the client-side calendar logic: event validation,
// recurrence expansion for range queries, the month grid for the terminal
// view, and ICS import/export. Storage belongs to the backend.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/calendarik-app/calendarik/internal/api"
)

// Priorities and types the backend accepts.
var (
	Priorities = []string{"low", "medium", "high"}
	EventTypes = []string{"task", "meeting", "deadline", "personal"}
)

// Occurrence is one concrete instance of an event within a query window.
// Non-recurring events yield exactly one occurrence; recurring events yield
// one per expansion hit.
type Occurrence struct {
	Event api.Event
	Start time.Time
	End   time.Time
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidateDraft checks an event draft before it is sent to the backend, so
// obviously bad input fails locally with a usable message.
func ValidateDraft(d api.EventDraft) error {
	if d.Title == "" {
		return errors.New("event title is required")
	}
	if d.StartTime.IsZero() {
		return errors.New("event start time is required")
	}
	if d.EndTime != nil && !d.EndTime.After(d.StartTime) {
		return errors.New("end time must be after start time")
	}
	if d.Priority != "" && !contains(Priorities, d.Priority) {
		return fmt.Errorf("invalid priority %q (valid: %v)", d.Priority, Priorities)
	}
	if d.Type != "" && !contains(EventTypes, d.Type) {
		return fmt.Errorf("invalid event type %q (valid: %v)", d.Type, EventTypes)
	}
	return nil
}

// eventEnd returns the effective end of an event: the explicit end, a day for
// all-day events, or an hour as the default block.
func eventEnd(ev api.Event) time.Time {
	if ev.EndTime != nil {
		return *ev.EndTime
	}
	if ev.AllDay {
		d := ev.StartTime
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).Add(24 * time.Hour)
	}
	return ev.StartTime.Add(time.Hour)
}
