package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	got, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodDaily, got)

	got, err = ParsePeriod(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, got)

	_, err = ParsePeriod("fortnightly")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestDailyWindowStartsAtMidnight(t *testing.T) {
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
	from, to := PeriodDaily.Window(now)
	assert.Equal(t, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)
}

func TestWeeklyWindowStartsOnMonday(t *testing.T) {
	// 2026-03-18 is a Wednesday.
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
	from, _ := PeriodWeekly.Window(now)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Monday, from.Weekday())

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 3, 22, 9, 0, 0, 0, time.UTC)
	from, _ = PeriodWeekly.Window(sunday)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), from)
}

func TestMonthlyWindowStartsOnFirst(t *testing.T) {
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
	from, to := PeriodMonthly.Window(now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
	from, to := TrailingWindow(now, 7)
	assert.Equal(t, now.Add(-7*24*time.Hour), from)
	assert.Equal(t, now, to)

	from, _ = TrailingWindow(now, 0)
	assert.Equal(t, now.Add(-24*time.Hour), from)
}
