package calendar

import (
	"fmt"
	"time"
)

// Day is one cell of the month grid.
type Day struct {
	Date        time.Time
	InMonth     bool
	Today       bool
	Occurrences []Occurrence
}

// MonthGrid is a month laid out as full weeks, padded with leading and
// trailing days from the neighbouring months.
type MonthGrid struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
	Weeks     [][7]Day
}

// MonthRange returns the [start, end) window covering the given month in loc.
// The window is what should be requested from the backend before building the
// grid.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// ParseWeekStart maps a config value to a weekday. Only monday and sunday are
// meaningful for a calendar grid.
func ParseWeekStart(s string) (time.Weekday, error) {
	switch s {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("invalid week start %q (valid: monday, sunday)", s)
	}
}

// BuildMonth assembles the grid for a month, bucketing occurrences into their
// local day. Multi-day occurrences land in every day they touch.
func BuildMonth(year int, month time.Month, occs []Occurrence, weekStart time.Weekday, loc *time.Location, now time.Time) MonthGrid {
	if loc == nil {
		loc = time.Local
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	// Walk back from the 1st to the week boundary.
	gridStart := first
	for gridStart.Weekday() != weekStart {
		gridStart = gridStart.AddDate(0, 0, -1)
	}
	// Walk forward from the last day to complete the final week.
	gridEnd := last
	for gridEnd.AddDate(0, 0, 1).Weekday() != weekStart {
		gridEnd = gridEnd.AddDate(0, 0, 1)
	}

	byDay := bucketByDay(occs, loc)
	today := now.In(loc)

	grid := MonthGrid{Year: year, Month: month, WeekStart: weekStart}
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 7) {
		var week [7]Day
		for i := 0; i < 7; i++ {
			day := d.AddDate(0, 0, i)
			week[i] = Day{
				Date:        day,
				InMonth:     day.Month() == month,
				Today:       sameDay(day, today),
				Occurrences: byDay[dayKey(day)],
			}
		}
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid
}

func bucketByDay(occs []Occurrence, loc *time.Location) map[string][]Occurrence {
	byDay := make(map[string][]Occurrence)
	for _, o := range occs {
		start := o.Start.In(loc)
		end := o.End.In(loc)
		// An occurrence ending exactly at midnight does not spill into the
		// next day.
		lastDay := end
		if h, m, s := end.Clock(); h == 0 && m == 0 && s == 0 && end.After(start) {
			lastDay = end.AddDate(0, 0, -1)
		}
		for d := truncateDay(start); !d.After(truncateDay(lastDay)); d = d.AddDate(0, 0, 1) {
			byDay[dayKey(d)] = append(byDay[dayKey(d)], o)
		}
	}
	return byDay
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
