package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/calendarik-app/calendarik/internal/api"
)

// maxOccurrencesPerEvent caps expansion so a pathological rule cannot
// produce an unbounded occurrence list.
const maxOccurrencesPerEvent = 1000

// Expand turns events into concrete occurrences inside [rangeStart, rangeEnd],
// expanding any event carrying an RRULE. Occurrences are converted to loc for
// display. An event whose rule fails to parse is returned as an error rather
// than silently dropped.
func Expand(events []api.Event, rangeStart, rangeEnd time.Time, loc *time.Location) ([]Occurrence, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("expand: range end %v before start %v", rangeEnd, rangeStart)
	}
	if loc == nil {
		loc = time.Local
	}

	var out []Occurrence
	for _, ev := range events {
		if ev.RRule == "" {
			start, end := ev.StartTime, eventEnd(ev)
			if end.Before(rangeStart) || start.After(rangeEnd) {
				continue
			}
			out = append(out, Occurrence{Event: ev, Start: start.In(loc), End: end.In(loc)})
			continue
		}

		occ, err := expandRecurring(ev, rangeStart, rangeEnd, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandRecurring(ev api.Event, rangeStart, rangeEnd time.Time, loc *time.Location) ([]Occurrence, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, fmt.Errorf("event %d: invalid rrule %q: %w", ev.ID, ev.RRule, err)
	}

	// Anchor the rule at the event's DTSTART.
	r.DTStart(ev.StartTime)

	// Between() operates in the rule's location.
	rs := rangeStart.In(ev.StartTime.Location())
	re := rangeEnd.In(ev.StartTime.Location())

	times := r.Between(rs, re, true)
	if len(times) > maxOccurrencesPerEvent {
		times = times[:maxOccurrencesPerEvent]
	}

	dur := eventEnd(ev).Sub(ev.StartTime)

	occ := make([]Occurrence, 0, len(times))
	for _, start := range times {
		occ = append(occ, Occurrence{
			Event: ev,
			Start: start.In(loc),
			End:   start.Add(dur).In(loc),
		})
	}
	return occ, nil
}
