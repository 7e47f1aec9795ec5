// Package calendar classifies calendar days as exchange trading days.
//
// The holiday set is built once at package init from a rule table of US
// exchange holidays for SupportedRange() and is immutable afterwards. Years
// outside the table degrade to weekend-only exclusion.
package calendar

import "time"

const (
	firstTableYear = 2000
	lastTableYear  = 2035
)

// holidays is keyed by yyyymmdd
var holidays = buildHolidayTable(firstTableYear, lastTableYear)

// IsTradingDay reports whether the UTC calendar day of t is a trading day
func IsTradingDay(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsHoliday(u)
}

// IsHoliday reports whether the UTC calendar day of t is in the holiday table
func IsHoliday(t time.Time) bool {
	_, ok := holidays[dayKey(t.UTC())]
	return ok
}

// TradingDaysBetween counts trading days in [start, end], inclusive on both ends.
// Returns 0 when end is before start.
func TradingDaysBetween(start, end time.Time) int {
	day := truncate(start)
	last := truncate(end)

	count := 0
	for !day.After(last) {
		if IsTradingDay(day) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// NextTradingDay returns the first trading day strictly after t
func NextTradingDay(t time.Time) time.Time {
	day := truncate(t).AddDate(0, 0, 1)
	for !IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// PreviousTradingDay returns the last trading day strictly before t
func PreviousTradingDay(t time.Time) time.Time {
	day := truncate(t).AddDate(0, 0, -1)
	for !IsTradingDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// OnOrAfter returns t's day if it is a trading day, else the next trading day
func OnOrAfter(t time.Time) time.Time {
	day := truncate(t)
	if IsTradingDay(day) {
		return day
	}
	return NextTradingDay(day)
}

// Holidays returns the observed holidays of a year in date order.
// Out-of-table years return an empty slice.
func Holidays(year int) []time.Time {
	if year < firstTableYear || year > lastTableYear {
		return []time.Time{}
	}
	return holidaysForYear(year)
}

// SupportedRange returns the first and last year covered by the holiday table
func SupportedRange() (int, int) {
	return firstTableYear, lastTableYear
}

func truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
