package cache

import "time"

// EpochStart returns local midnight of the most recent weekday on or before
// t's calendar day in loc. A nil loc means UTC.
func EpochStart(t time.Time, loc *time.Location, weekday time.Weekday) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	back := (int(local.Weekday()) - int(weekday) + 7) % 7
	return time.Date(y, m, d-back, 0, 0, 0, 0, loc)
}

// WeekKey buckets t into the period starting at EpochStart, e.g. "week-2024-01-01".
func WeekKey(t time.Time, loc *time.Location, weekday time.Weekday) string {
	return "week-" + EpochStart(t, loc, weekday).Format("2006-01-02")
}
