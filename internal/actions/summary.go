package actions

import (
	"context"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// DaySummary reads today's calendar and has the model summarize it.
type DaySummary struct {
	Calendar  assist.CalendarClient
	Generator assist.TextGenerator
	// AllowedCalendarIDs limits the calendars read; nil means all.
	AllowedCalendarIDs map[string]struct{}
	StyleHint          string
}

func (DaySummary) ID() string          { return DaySummaryID }
func (DaySummary) DisplayName() string { return "Day summary" }
func (DaySummary) Summary() string     { return "Summarize today's calendar" }

func (s DaySummary) DebugContext() map[string]any {
	return map[string]any{"calendar_scope": calendarScope(s.AllowedCalendarIDs)}
}

func (s DaySummary) Run(ctx context.Context) (assist.ActionResult, error) {
	schedule, err := todaysSchedule(ctx, s.Calendar, DaySummaryID, s.AllowedCalendarIDs)
	if err != nil {
		return assist.ActionResult{}, err
	}
	if schedule == "" {
		schedule = "No events today."
	}
	out, err := generate(ctx, s.Generator, DaySummaryID, "Summarize this schedule for today:\n\n"+schedule, s.StyleHint)
	if err != nil {
		return assist.ActionResult{}, err
	}
	return generatedResult(out), nil
}
