package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalendarModeKeepsInstant(t *testing.T) {
	base := time.Date(2026, time.March, 27, 17, 45, 0, 0, time.UTC)
	due, err := NewCalculator(nil).Compute(base, 5, ModeCalendar)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.April, 1, 17, 45, 0, 0, time.UTC), due)
}

func TestBusinessModeSkipsWeekendsAndHolidays(t *testing.T) {
	holidays, err := ParseHolidays([]string{"2026-04-03"})
	require.NoError(t, err)
	calc := NewCalculator(holidays)

	// Friday 2026-03-27 + 5 business days: Mon 30, Tue 31, Wed 1, Thu 2, (Fri 3 holiday), Mon 6.
	base := time.Date(2026, time.March, 27, 9, 0, 0, 0, time.UTC)
	due, err := calc.Compute(base, 5, ModeBusiness)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.April, 6, 9, 0, 0, 0, time.UTC), due)
	require.False(t, calc.BusinessDay(time.Date(2026, time.April, 4, 0, 0, 0, 0, time.UTC)))
}

func TestComputeRejectsNonPositiveDays(t *testing.T) {
	_, err := NewCalculator(nil).Compute(time.Now(), 0, ModeCalendar)
	require.ErrorIs(t, err, ErrInvalidDays)
}

func TestParseHolidaysRejectsBadDate(t *testing.T) {
	_, err := ParseHolidays([]string{"03/04/2026"})
	require.Error(t, err)
}
