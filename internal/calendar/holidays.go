package calendar

import "time"

func buildHolidayTable(from, to int) map[int]struct{} {
	table := make(map[int]struct{})
	for year := from; year <= to; year++ {
		for _, day := range holidaysForYear(year) {
			table[dayKey(day)] = struct{}{}
		}
	}
	return table
}

// holidaysForYear returns observed US exchange holidays for one year
func holidaysForYear(year int) []time.Time {
	days := make([]time.Time, 0, 10)

	// New Year's Day: Sunday → Monday, Saturday은 전년도 금요일로 옮기지 않음
	newYear := date(year, time.January, 1)
	switch newYear.Weekday() {
	case time.Sunday:
		days = append(days, newYear.AddDate(0, 0, 1))
	case time.Saturday:
	default:
		days = append(days, newYear)
	}

	days = append(days,
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Presidents Day
		easter(year).AddDate(0, 0, -2),                  // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
	)

	if year >= 2022 {
		days = append(days, observed(date(year, time.June, 19))) // Juneteenth
	}

	days = append(days,
		observed(date(year, time.July, 4)),                // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(year, time.December, 25)),           // Christmas
	)

	return days
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed shifts a Saturday holiday to Friday and a Sunday holiday to Monday
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	last := date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday (anonymous Gregorian algorithm)
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}
