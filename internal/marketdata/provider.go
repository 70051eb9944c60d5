// Package marketdata fetches instrument price series from an external
// chart provider. Failures are classified so the pipeline can tell a
// retryable hiccup from a dead instrument.
package marketdata

import (
	"context"
	"errors"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// ErrTransient marks failures worth retrying: timeouts, rate limits,
// 5xx responses.
var ErrTransient = errors.New("transient provider failure")

// ErrPermanent marks failures that retrying cannot fix: unknown
// instrument, malformed response for this symbol.
var ErrPermanent = errors.New("permanent provider failure")

// Provider fetches the daily price series for one instrument.
type Provider interface {
	Fetch(ctx context.Context, instrumentID string, period string, interval string) ([]*domain.PriceBar, error)
}
