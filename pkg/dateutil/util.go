package dateutil

import (
	"fmt"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func NextDay(t time.Time) time.Time {
	return BeginningOfDay(t).AddDate(0, 0, 1)
}

func BeginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func NextMonth(t time.Time) time.Time {
	return BeginningOfMonth(t).AddDate(0, 1, 0)
}

// DaysBetween returns the number of calendar days from a to b in loc. It is
// negative if b is before a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ya, ma, da := a.In(loc).Date()
	yb, mb, db := b.In(loc).Date()

	// Noon UTC avoids DST artifacts when dividing by 24h.
	dayA := time.Date(ya, ma, da, 12, 0, 0, 0, time.UTC)
	dayB := time.Date(yb, mb, db, 12, 0, 0, 0, time.UTC)
	return int(dayB.Sub(dayA).Hours() / 24)
}

// MonthPeriod returns the month key of t, for example 2026-10.
func MonthPeriod(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
}
