package workhours

import "time"

// HoursPerWeekday is the assumed working hours of one weekday when no
// reference row exists for a month.
const HoursPerWeekday = 8

// CountWeekdays returns the number of Mondays through Fridays in the month.
func CountWeekdays(year int, month time.Month) int {
	count := 0
	day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == month {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// FallbackHours derives working hours for a month without reference data.
func FallbackHours(year int, month time.Month) float64 {
	return float64(CountWeekdays(year, month) * HoursPerWeekday)
}
