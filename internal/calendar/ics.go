package calendar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/calendarik-app/calendarik/internal/api"
)

const icsProdID = "-//calendarik//calendarik terminal client//EN"

// ExportICS serializes events as an iCalendar document. Recurring events keep
// their RRULE rather than being expanded, so the file round-trips.
func ExportICS(w io.Writer, events []api.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProdID)

	for _, ev := range events {
		ve := cal.AddEvent(fmt.Sprintf("calendarik-%d@calendarik", ev.ID))
		ve.SetDtStampTime(time.Now().UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.StartTime)
			ve.SetAllDayEndAt(eventEnd(ev))
		} else {
			ve.SetStartAt(ev.StartTime.UTC())
			ve.SetEndAt(eventEnd(ev).UTC())
		}
		if ev.RRule != "" {
			ve.AddRrule(ev.RRule)
		}
		if ev.Priority != "" || ev.Type != "" {
			// Stash priority and type in CATEGORIES so a re-import restores them.
			ve.SetProperty(ical.ComponentPropertyCategories, categoriesValue(ev.Priority, ev.Type))
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func categoriesValue(priority, typ string) string {
	var parts []string
	if priority != "" {
		parts = append(parts, "priority:"+priority)
	}
	if typ != "" {
		parts = append(parts, "type:"+typ)
	}
	return strings.Join(parts, ",")
}

// ImportICS parses an iCalendar document into event drafts ready to be created
// on the backend. A VEVENT that cannot be parsed is skipped; the skipped count
// is returned so the caller can report it.
func ImportICS(body []byte) ([]api.EventDraft, int, error) {
	if len(body) == 0 {
		return nil, 0, fmt.Errorf("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse ics: %w", err)
	}

	var drafts []api.EventDraft
	skipped := 0
	for _, ve := range cal.Events() {
		d, ok := parseVEvent(ve)
		if !ok {
			skipped++
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (api.EventDraft, bool) {
	var d api.EventDraft

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		d.Title = p.Value
	}
	if d.Title == "" {
		d.Title = "Imported event " + uuid.NewString()[:8]
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		d.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return d, false
	}
	d.StartTime = start

	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		d.EndTime = &end
	}

	// VALUE=DATE or a date-only value means all-day.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			d.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			d.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		d.RRule = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "priority:"):
				if v := strings.TrimPrefix(part, "priority:"); contains(Priorities, v) {
					d.Priority = v
				}
			case strings.HasPrefix(part, "type:"):
				if v := strings.TrimPrefix(part, "type:"); contains(EventTypes, v) {
					d.Type = v
				}
			}
		}
	}

	return d, true
}
