package payroll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultBonusMonthOffset is the number of months between a cycle's
// preparation month and the month its annual bonus is paid.
const DefaultBonusMonthOffset = 2

var titleCaser = cases.Title(language.English)

// FormatMonthLabel renders the canonical "<MonthName> <Year>" label.
func FormatMonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %04d", month.String(), year)
}

// ParseMonthLabel parses a canonical "<MonthName> <FourDigitYear>" label.
// Month names are matched case-insensitively; anything else fails with
// ErrInvalidMonthLabel rather than being guessed at.
func ParseMonthLabel(label string) (int, time.Month, error) {
	fields := strings.Fields(label)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}

	month, ok := monthByName(fields[0])
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}

	if len(fields[1]) != 4 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}

	return year, month, nil
}

// CanonicalMonthLabel normalises case and whitespace of a parseable label.
// Unparseable labels are returned untouched: month labels are free-form
// strings until month arithmetic is requested on them.
func CanonicalMonthLabel(label string) string {
	year, month, err := ParseMonthLabel(label)
	if err != nil {
		return strings.TrimSpace(label)
	}
	return FormatMonthLabel(year, month)
}

// monthTokenOf extracts a calendar month from a loosely formatted label: a
// full month name anywhere, or a 1-2 digit numeric token at the start or end.
func monthTokenOf(label string) (time.Month, bool) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, false
	}

	for _, f := range fields {
		if m, ok := monthByName(f); ok {
			return m, true
		}
	}

	for _, f := range []string{fields[0], fields[len(fields)-1]} {
		if len(f) > 2 {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > 12 {
			continue
		}
		return time.Month(n), true
	}

	return 0, false
}

func monthByName(name string) (time.Month, bool) {
	normalized := titleCaser.String(strings.ToLower(name))
	for m := time.January; m <= time.December; m++ {
		if m.String() == normalized {
			return m, true
		}
	}
	return 0, false
}

// shiftMonth moves a month forward by offset, wrapping within 1..12.
func shiftMonth(month time.Month, offset int) time.Month {
	return time.Month((int(month)-1+offset)%12 + 1)
}

// nextMonth returns the calendar month after (year, month), wrapping the
// year over December.
func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
