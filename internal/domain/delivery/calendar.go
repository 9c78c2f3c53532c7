// internal/domain/delivery/calendar.go
package delivery

import "time"

// IsSunday reports whether t falls on a Sunday in its own location.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// AddDays returns t moved n calendar days, keeping the wall clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AtHour returns the same calendar day as t at hour:minute:00.000.
func AtHour(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

// AvoidSunday moves a Sunday to the following Monday. The second return value
// reports whether a shift happened. Monday is never re-checked.
func AvoidSunday(t time.Time) (time.Time, bool) {
	if IsSunday(t) {
		return AddDays(t, 1), true
	}
	return t, false
}

