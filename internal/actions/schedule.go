package actions

import (
	"context"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Schedule shows today's calendar as-is.
type Schedule struct {
	Calendar           assist.CalendarClient
	AllowedCalendarIDs map[string]struct{}
}

func (Schedule) ID() string          { return ScheduleID }
func (Schedule) DisplayName() string { return "Today's schedule" }
func (Schedule) Summary() string     { return "Show today's calendar" }

func (s Schedule) DebugContext() map[string]any {
	return map[string]any{"calendar_scope": calendarScope(s.AllowedCalendarIDs)}
}

func (s Schedule) Run(ctx context.Context) (assist.ActionResult, error) {
	text, err := todaysSchedule(ctx, s.Calendar, ScheduleID, s.AllowedCalendarIDs)
	if err != nil {
		return assist.ActionResult{}, err
	}
	if text == "" {
		text = "Nothing scheduled today."
	}
	return assist.TextResult(text), nil
}
