package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMonthLabel(t *testing.T) {
	year, month, err := ParseMonthLabel("October 2025")
	require.NoError(t, err)
	require.Equal(t, 2025, year)
	require.Equal(t, time.October, month)

	year, month, err = ParseMonthLabel("  december   2031 ")
	require.NoError(t, err)
	require.Equal(t, 2031, year)
	require.Equal(t, time.December, month)

	for _, label := range []string{"", "October", "Oct 2025", "October 25", "2025 October", "Folha Outubro"} {
		_, _, err := ParseMonthLabel(label)
		require.ErrorIs(t, err, ErrInvalidMonthLabel, label)
	}
}

func TestCanonicalMonthLabel(t *testing.T) {
	require.Equal(t, "October 2025", CanonicalMonthLabel("october  2025"))
	require.Equal(t, "January 2026", CanonicalMonthLabel("JANUARY 2026"))
	// Unparseable labels pass through trimmed, not rejected.
	require.Equal(t, "Folha Outubro", CanonicalMonthLabel("  Folha Outubro "))
}

func TestMonthTokenOf(t *testing.T) {
	month, ok := monthTokenOf("October 2025")
	require.True(t, ok)
	require.Equal(t, time.October, month)

	month, ok = monthTokenOf("payroll november")
	require.True(t, ok)
	require.Equal(t, time.November, month)

	month, ok = monthTokenOf("Folha 10")
	require.True(t, ok)
	require.Equal(t, time.October, month)

	month, ok = monthTokenOf("3 extra run")
	require.True(t, ok)
	require.Equal(t, time.March, month)

	for _, label := range []string{"", "Folha 13", "cycle 2025", "mid 7 label"} {
		_, ok := monthTokenOf(label)
		require.False(t, ok, label)
	}
}

func TestShiftMonthWraps(t *testing.T) {
	require.Equal(t, time.December, shiftMonth(time.October, 2))
	require.Equal(t, time.January, shiftMonth(time.November, 2))
	require.Equal(t, time.February, shiftMonth(time.December, 2))
	require.Equal(t, time.July, shiftMonth(time.July, 0))
}

func TestNextMonth(t *testing.T) {
	year, month := nextMonth(2025, time.October)
	require.Equal(t, 2025, year)
	require.Equal(t, time.November, month)

	year, month = nextMonth(2025, time.December)
	require.Equal(t, 2026, year)
	require.Equal(t, time.January, month)
}
