package calendar

import (
	"testing"
	"time"

	"github.com/calendarik-app/calendarik/internal/api"
)

func TestValidateDraft(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	cases := []struct {
		name    string
		draft   api.EventDraft
		wantErr bool
	}{
		{"valid", api.EventDraft{Title: "t", StartTime: start, Priority: "high", Type: "meeting"}, false},
		{"no title", api.EventDraft{StartTime: start}, true},
		{"no start", api.EventDraft{Title: "t"}, true},
		{"end before start", api.EventDraft{Title: "t", StartTime: start, EndTime: &before}, true},
		{"bad priority", api.EventDraft{Title: "t", StartTime: start, Priority: "urgent"}, true},
		{"bad type", api.EventDraft{Title: "t", StartTime: start, Type: "party"}, true},
		{"empty priority ok", api.EventDraft{Title: "t", StartTime: start}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDraft(tc.draft)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateDraft(%+v) error = %v, wantErr %v", tc.draft, err, tc.wantErr)
			}
		})
	}
}

func TestEventEnd(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	explicit := start.Add(2 * time.Hour)

	if got := eventEnd(api.Event{StartTime: start, EndTime: &explicit}); !got.Equal(explicit) {
		t.Errorf("explicit end = %v, want %v", got, explicit)
	}
	if got := eventEnd(api.Event{StartTime: start}); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("default end = %v, want start+1h", got)
	}
	allDayEnd := eventEnd(api.Event{StartTime: start, AllDay: true})
	want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !allDayEnd.Equal(want) {
		t.Errorf("all-day end = %v, want next midnight %v", allDayEnd, want)
	}
}
