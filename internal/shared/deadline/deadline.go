// Package deadline computes statutory due dates in calendar or business days.
package deadline

import (
	"errors"
	"time"
)

type Mode string

const (
	ModeCalendar Mode = "calendar"
	ModeBusiness Mode = "business"
)

const dateLayout = "2006-01-02"

var ErrInvalidDays = errors.New("deadline days must be positive")

// Calculator adds statutory days to a base instant. Holidays are matched by
// calendar date in the base instant's location.
type Calculator struct {
	holidays map[string]struct{}
}

func NewCalculator(holidays []time.Time) Calculator {
	set := make(map[string]struct{}, len(holidays))
	for _, day := range holidays {
		set[day.Format(dateLayout)] = struct{}{}
	}
	return Calculator{holidays: set}
}

// ParseHolidays reads YYYY-MM-DD dates.
func ParseHolidays(values []string) ([]time.Time, error) {
	days := make([]time.Time, 0, len(values))
	for _, value := range values {
		day, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// Compute returns base plus days. Calendar mode keeps the exact instant of
// the base; business mode skips weekends and holidays, keeping the time of
// day.
func (c Calculator) Compute(base time.Time, days int, mode Mode) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, ErrInvalidDays
	}
	if mode != ModeBusiness {
		return base.AddDate(0, 0, days), nil
	}
	current := base
	for remaining := days; remaining > 0; {
		current = current.AddDate(0, 0, 1)
		if c.BusinessDay(current) {
			remaining--
		}
	}
	return current, nil
}

func (c Calculator) BusinessDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[day.Format(dateLayout)]
	return !holiday
}
