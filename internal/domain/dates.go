package domain

import "time"

// DaysPerMonth is the billing month length used for every lifecycle date.
const DaysPerMonth = 30

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths advances a date by months billing months of DaysPerMonth days.
func AddMonths(d time.Time, months int) time.Time {
	return DateOf(d).AddDate(0, 0, months*DaysPerMonth)
}

// DaysBetween returns the number of whole calendar days from -> to, negative
// when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
