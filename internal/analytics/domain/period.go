package domain

import (
	"strings"
	"time"
)

// Period is a calendar-aligned preset window ending at "now". Daily
// starts at midnight today, weekly at Monday 00:00, monthly on the
// first of the month. Trailing windows are a separate policy used only
// by the summary cache refresh path; the two are never mixed within
// one report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(value string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(value))) {
	case PeriodDaily, "":
		return PeriodDaily, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Window returns [from, to) for the period anchored at now.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch p {
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := now.AddDate(0, 0, -(weekday - 1))
		from := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
		return from, now
	case PeriodMonthly:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, now
	default:
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return from, now
	}
}

// TrailingWindow returns the last days×24h ending at now. This is the
// legacy windowing policy kept for the summary cache refresher.
func TrailingWindow(now time.Time, days int) (time.Time, time.Time) {
	now = now.UTC()
	if days <= 0 {
		days = 1
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour), now
}
