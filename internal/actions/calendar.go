package actions

import (
	"context"
	"sort"
	"strings"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// todaysSchedule asks for calendar access and reads today's events.
func todaysSchedule(ctx context.Context, cal assist.CalendarClient, stage string, allowed map[string]struct{}) (string, error) {
	if cal == nil {
		return "", assist.NewConfigurationMissingError(stage, "no calendar configured")
	}
	if err := cal.RequestAccessIfNeeded(ctx); err != nil {
		return "", collaboratorError(ctx, stage, err, func(e error) *assist.Error {
			return assist.NewPermissionDeniedError(stage, "the calendar", e)
		})
	}
	text, err := cal.FetchTodayScheduleSummary(ctx, allowed)
	if err != nil {
		return "", collaboratorError(ctx, stage, err, func(e error) *assist.Error {
			return assist.NewInvalidResponseError(stage, "could not read today's calendar", e)
		})
	}
	return strings.TrimSpace(text), nil
}

// calendarScope renders the allowed set for debug traces.
func calendarScope(allowed map[string]struct{}) any {
	if allowed == nil {
		return "all"
	}
	ids := make([]string, 0, len(allowed))
	for id := range allowed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
