package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout = 20 * time.Second
)

// HTTPProvider implements Provider against a chart HTTP API returning
// daily OHLCV arrays per instrument.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// ProviderOption configures HTTPProvider.
type ProviderOption func(*HTTPProvider)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *HTTPProvider) {
		p.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// NewHTTPProvider creates a chart API client.
func NewHTTPProvider(endpoint string, opts ...ProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile-time interface check.
var _ Provider = (*HTTPProvider)(nil)

// chartResponse is the provider's wire format: parallel arrays indexed
// by trading day.
type chartResponse struct {
	Symbol string    `json:"symbol"`
	Dates  []string  `json:"dates"` // YYYY-MM-DD
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}

// Fetch downloads the daily series for one instrument. Transport errors,
// rate limits and 5xx map to ErrTransient; 4xx and shape mismatches map
// to ErrPermanent.
func (p *HTTPProvider) Fetch(ctx context.Context, instrumentID, period, interval string) ([]*domain.PriceBar, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint: %v", ErrPermanent, err)
	}
	q := u.Query()
	q.Set("symbol", instrumentID)
	q.Set("period", period)
	q.Set("interval", interval)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrPermanent, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrPermanent, resp.StatusCode, body)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransient, err)
	}

	n := len(payload.Dates)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", ErrPermanent, instrumentID)
	}
	if len(payload.Open) != n || len(payload.High) != n || len(payload.Low) != n ||
		len(payload.Close) != n || len(payload.Volume) != n {
		return nil, fmt.Errorf("%w: ragged series for %s", ErrPermanent, instrumentID)
	}

	bars := make([]*domain.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		date, err := domain.ParseDate(payload.Dates[i])
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q for %s", ErrPermanent, payload.Dates[i], instrumentID)
		}
		bars = append(bars, &domain.PriceBar{
			InstrumentID: instrumentID,
			Date:         date,
			Open:         payload.Open[i],
			High:         payload.High[i],
			Low:          payload.Low[i],
			Close:        payload.Close[i],
			Volume:       payload.Volume[i],
		})
	}
	return bars, nil
}
