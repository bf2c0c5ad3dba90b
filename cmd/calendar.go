package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/calendarik-app/calendarik/internal/api"
	"github.com/calendarik-app/calendarik/internal/calendar"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Manage calendar events",
	}
	cmd.AddCommand(newCalendarListCmd())
	cmd.AddCommand(newCalendarAddCmd())
	cmd.AddCommand(newCalendarEditCmd())
	cmd.AddCommand(newCalendarRmCmd())
	cmd.AddCommand(newCalendarMonthCmd())
	cmd.AddCommand(newCalendarExportCmd())
	cmd.AddCommand(newCalendarImportCmd())
	return cmd
}

// displayLocation resolves the timezone for calendar output: config override,
// then profile timezone, then the system zone.
func displayLocation(a *app) *time.Location {
	name := a.cfg.Calendar.Timezone
	if name == "" {
		if u := a.session.User(); u != nil {
			name = u.Timezone
		}
	}
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		a.log.Warn("unknown timezone, using system zone", "tz", name)
		return time.Local
	}
	return loc
}

// parseEventTime accepts "2006-01-02 15:04", RFC3339, or a bare date.
// A bare date reports dateOnly=true so the caller can treat it as all-day.
func parseEventTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err = time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, false, nil
	}
	if t, err = time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("cannot parse time %q (use 2006-01-02, 2006-01-02 15:04, or RFC3339)", s)
}

func newCalendarListCmd() *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in a date range (default: next 7 days)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}
			loc := displayLocation(app)

			from := time.Now().In(loc)
			to := from.AddDate(0, 0, 7)
			if fromStr != "" {
				from, _, err = parseEventTime(fromStr, loc)
				if err != nil {
					return err
				}
			}
			if toStr != "" {
				to, _, err = parseEventTime(toStr, loc)
				if err != nil {
					return err
				}
			}

			occs, err := fetchOccurrences(cmd.Context(), app, from, to, loc)
			if err != nil {
				return err
			}
			if len(occs) == 0 {
				fmt.Println("No events.")
				return nil
			}
			for _, o := range occs {
				printOccurrence(o)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "range start")
	cmd.Flags().StringVar(&toStr, "to", "", "range end")
	return cmd
}

func fetchOccurrences(ctx context.Context, app *app, from, to time.Time, loc *time.Location) ([]calendar.Occurrence, error) {
	events, err := app.client.Events(ctx, app.session.AccessToken(), &from, &to)
	if err != nil {
		return nil, err
	}
	return calendar.Expand(events, from, to, loc)
}

func printOccurrence(o calendar.Occurrence) {
	when := o.Start.Format("Mon 2006-01-02 15:04")
	if o.Event.AllDay {
		when = o.Start.Format("Mon 2006-01-02") + " (all day)"
	}
	extras := make([]string, 0, 3)
	if o.Event.Priority != "" {
		extras = append(extras, o.Event.Priority)
	}
	if o.Event.Type != "" {
		extras = append(extras, o.Event.Type)
	}
	if o.Event.RRule != "" {
		extras = append(extras, "recurring")
	}
	suffix := ""
	if len(extras) > 0 {
		suffix = "  [" + strings.Join(extras, ", ") + "]"
	}
	fmt.Printf("%4d  %s  %s%s\n", o.Event.ID, when, o.Event.Title, suffix)
}

// eventFlags holds the shared add/edit flag set.
type eventFlags struct {
	title       string
	description string
	start       string
	end         string
	allDay      bool
	priority    string
	eventType   string
	rrule       string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "event title")
	cmd.Flags().StringVarP(&f.description, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&f.start, "start", "s", "", "start time")
	cmd.Flags().StringVar(&f.end, "end", "", "end time")
	cmd.Flags().BoolVar(&f.allDay, "all-day", false, "all-day event")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "priority: low | medium | high")
	cmd.Flags().StringVar(&f.eventType, "type", "", "type: task | meeting | deadline | personal")
	cmd.Flags().StringVar(&f.rrule, "rrule", "", "recurrence rule (e.g. FREQ=WEEKLY;BYDAY=MO)")
}

// apply merges the set flags into a draft.
func (f *eventFlags) apply(cmd *cobra.Command, draft *api.EventDraft, loc *time.Location) error {
	if cmd.Flags().Changed("title") {
		draft.Title = f.title
	}
	if cmd.Flags().Changed("desc") {
		draft.Description = f.description
	}
	if cmd.Flags().Changed("start") {
		t, dateOnly, err := parseEventTime(f.start, loc)
		if err != nil {
			return err
		}
		draft.StartTime = t
		if dateOnly {
			draft.AllDay = true
		}
	}
	if cmd.Flags().Changed("end") {
		t, _, err := parseEventTime(f.end, loc)
		if err != nil {
			return err
		}
		draft.EndTime = &t
	}
	if cmd.Flags().Changed("all-day") {
		draft.AllDay = f.allDay
	}
	if cmd.Flags().Changed("priority") {
		draft.Priority = f.priority
	}
	if cmd.Flags().Changed("type") {
		draft.Type = f.eventType
	}
	if cmd.Flags().Changed("rrule") {
		draft.RRule = f.rrule
	}
	return nil
}

func newCalendarAddCmd() *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}
			loc := displayLocation(app)

			var draft api.EventDraft
			if err := flags.apply(cmd, &draft, loc); err != nil {
				return err
			}
			if err := calendar.ValidateDraft(draft); err != nil {
				return err
			}

			ev, err := app.client.CreateEvent(cmd.Context(), app.session.AccessToken(), draft)
			if err != nil {
				return err
			}
			fmt.Printf("Created event %d: %s\n", ev.ID, ev.Title)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newCalendarEditCmd() *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}
			loc := displayLocation(app)

			// Start from the stored event so unset flags keep their values.
			ev, err := app.client.Event(cmd.Context(), app.session.AccessToken(), id)
			if err != nil {
				return err
			}
			draft := api.EventDraft{
				Title:       ev.Title,
				Description: ev.Description,
				StartTime:   ev.StartTime,
				EndTime:     ev.EndTime,
				AllDay:      ev.AllDay,
				Priority:    ev.Priority,
				Type:        ev.Type,
				RRule:       ev.RRule,
			}
			if err := flags.apply(cmd, &draft, loc); err != nil {
				return err
			}
			if err := calendar.ValidateDraft(draft); err != nil {
				return err
			}

			updated, err := app.client.UpdateEvent(cmd.Context(), app.session.AccessToken(), id, draft)
			if err != nil {
				return err
			}
			fmt.Printf("Updated event %d: %s\n", updated.ID, updated.Title)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newCalendarRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}

			if err := app.client.DeleteEvent(cmd.Context(), app.session.AccessToken(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted event %d\n", id)
			return nil
		},
	}
}

func newCalendarMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show a month view (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}
			loc := displayLocation(app)

			now := time.Now().In(loc)
			year, month := now.Year(), now.Month()
			if len(args) == 1 {
				t, err := time.Parse("2006-01", args[0])
				if err != nil {
					return fmt.Errorf("invalid month %q (use YYYY-MM)", args[0])
				}
				year, month = t.Year(), t.Month()
			}

			weekStart, err := calendar.ParseWeekStart(app.cfg.Calendar.WeekStart)
			if err != nil {
				return err
			}

			from, to := calendar.MonthRange(year, month, loc)
			occs, err := fetchOccurrences(cmd.Context(), app, from, to, loc)
			if err != nil {
				return err
			}

			grid := calendar.BuildMonth(year, month, occs, weekStart, loc, now)
			printMonth(grid)
			return nil
		},
	}
}

// printMonth renders the grid as a plain text calendar with event titles
// listed under each week.
func printMonth(grid calendar.MonthGrid) {
	fmt.Printf("%s %d\n", grid.Month, grid.Year)

	var header strings.Builder
	for i := 0; i < 7; i++ {
		d := grid.Weeks[0][i].Date.Weekday()
		header.WriteString(fmt.Sprintf("%4s", d.String()[:3]))
	}
	fmt.Println(header.String())

	for _, week := range grid.Weeks {
		var row strings.Builder
		for _, day := range week {
			cell := fmt.Sprintf(" %2d", day.Date.Day())
			switch {
			case !day.InMonth:
				cell = "  ·"
			case day.Today:
				cell = fmt.Sprintf("[%2d]", day.Date.Day())
			}
			marker := " "
			if day.Today {
				marker = ""
			} else if len(day.Occurrences) > 0 && day.InMonth {
				marker = "*"
			}
			row.WriteString(cell + marker)
		}
		fmt.Println(row.String())

		for _, day := range week {
			if !day.InMonth {
				continue
			}
			for _, o := range day.Occurrences {
				fmt.Printf("    %2d: %s\n", day.Date.Day(), o.Event.Title)
			}
		}
	}
}

func newCalendarExportCmd() *cobra.Command {
	var fromStr, toStr, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}
			loc := displayLocation(app)

			var from, to *time.Time
			if fromStr != "" {
				t, _, err := parseEventTime(fromStr, loc)
				if err != nil {
					return err
				}
				from = &t
			}
			if toStr != "" {
				t, _, err := parseEventTime(toStr, loc)
				if err != nil {
					return err
				}
				to = &t
			}

			events, err := app.client.Events(cmd.Context(), app.session.AccessToken(), from, to)
			if err != nil {
				return err
			}

			w := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := calendar.ExportICS(w, events); err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("Exported %d events to %s\n", len(events), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "range start (default: everything)")
	cmd.Flags().StringVar(&toStr, "to", "", "range end")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newCalendarImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Import events from an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			drafts, skipped, err := calendar.ImportICS(body)
			if err != nil {
				return err
			}
			if skipped > 0 {
				fmt.Fprintf(os.Stderr, "skipped %d unparsable events\n", skipped)
			}
			if dryRun {
				for _, d := range drafts {
					fmt.Printf("would import: %s at %s\n", d.Title, d.StartTime.Format(time.RFC3339))
				}
				return nil
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}

			created := 0
			for _, d := range drafts {
				if err := calendar.ValidateDraft(d); err != nil {
					fmt.Fprintf(os.Stderr, "skipping %q: %v\n", d.Title, err)
					continue
				}
				if _, err := app.client.CreateEvent(cmd.Context(), app.session.AccessToken(), d); err != nil {
					return fmt.Errorf("import %q: %w", d.Title, err)
				}
				created++
			}
			fmt.Printf("Imported %d events\n", created)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and list without creating events")
	return cmd
}
