package calendar

import (
	"fmt"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
	"eleitoral/internal/shared/deadline"
)

// Calculator adapts the shared deadline calculator to the case-service port.
type Calculator struct {
	Inner deadline.Calculator
}

func New(holidays []time.Time) Calculator {
	return Calculator{Inner: deadline.NewCalculator(holidays)}
}

func (c Calculator) ComputeDeadline(base time.Time, days int, mode entities.CalendarMode) (time.Time, error) {
	due, err := c.Inner.Compute(base.UTC(), days, deadline.Mode(mode))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	return due, nil
}

var _ ports.DeadlineCalculator = Calculator{}
