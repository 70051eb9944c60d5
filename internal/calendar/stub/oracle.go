// Package stub provides a deterministic calendar oracle for tests.
package stub

import (
	"context"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/calendar"
	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Oracle is an in-memory calendar oracle. Dates default to trading days
// unless marked otherwise; Fail forces ErrUnavailable for every query.
type Oracle struct {
	mu       sync.RWMutex
	holidays map[domain.Date]domain.HolidayClass
	fail     bool
	queries  []domain.Date
}

// NewOracle creates an oracle where every date is a trading day.
func NewOracle() *Oracle {
	return &Oracle{holidays: make(map[domain.Date]domain.HolidayClass)}
}

// Compile-time interface check.
var _ calendar.Oracle = (*Oracle)(nil)

// SetHoliday marks a date as a non-trading day.
func (o *Oracle) SetHoliday(date domain.Date) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.holidays[date] = domain.HolidayClassNonTrading
}

// SetFail makes every subsequent query return ErrUnavailable.
func (o *Oracle) SetFail(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = fail
}

// Queries returns the dates queried so far, in order.
func (o *Oracle) Queries() []domain.Date {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.Date, len(o.queries))
	copy(out, o.queries)
	return out
}

// Query answers from the configured holiday set.
func (o *Oracle) Query(_ context.Context, date domain.Date) (*domain.TradingDayRecord, error) {
	o.mu.Lock()
	o.queries = append(o.queries, date)
	fail := o.fail
	class, holiday := o.holidays[date]
	o.mu.Unlock()

	if fail {
		return nil, calendar.ErrUnavailable
	}
	if holiday {
		return &domain.TradingDayRecord{Date: date, IsTradingDay: false, HolidayClass: class}, nil
	}
	return &domain.TradingDayRecord{
		Date:         date,
		IsTradingDay: true,
		HolidayClass: domain.HolidayClassTrading,
	}, nil
}
