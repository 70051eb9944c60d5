// Package calendar provides the trading calendar oracle: the external
// authority on whether a given civil date is a trading day.
package calendar

import (
	"context"
	"errors"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// ErrUnavailable is returned when the calendar provider cannot be reached
// or returns an unusable response. This is a distinct condition from
// IsTradingDay=false: callers must fail closed, never assume a date is a
// trading day by default.
var ErrUnavailable = errors.New("trading calendar unavailable")

// ErrDateNotCovered is returned when the provider responded but the
// requested date is outside the returned calendar range.
var ErrDateNotCovered = errors.New("date not covered by trading calendar")

// Oracle answers whether a date is a trading day.
type Oracle interface {
	// Query fetches the calendar record for one date. The record is not
	// cached or persisted by callers; the provider stays authoritative.
	Query(ctx context.Context, date domain.Date) (*domain.TradingDayRecord, error)
}
