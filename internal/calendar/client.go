package calendar

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
	DefaultTimeout = 15 * time.Second

	// calendarWindowDays is how far around the requested date the client
	// asks the provider for, so one response covers nearby lookups.
	calendarWindowDays = 10
)

// HTTPClient implements Oracle against a market calendar HTTP API that
// returns per-date holiday division codes.
type HTTPClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a calendar client. endpoint is the calendar
// resource URL; token is sent as a bearer credential.
func NewHTTPClient(endpoint, token string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Oracle = (*HTTPClient)(nil)

// calendarResponse is the provider's wire format.
type calendarResponse struct {
	Data []calendarRecord `json:"data"`
}

type calendarRecord struct {
	Date   string `json:"Date"`   // YYYY-MM-DD
	HolDiv string `json:"HolDiv"` // holiday division code
}

// Query fetches the calendar record for one date.
// Any transport or decode failure maps to ErrUnavailable so callers can
// fail closed without inspecting provider internals.
func (c *HTTPClient) Query(ctx context.Context, date domain.Date) (*domain.TradingDayRecord, error) {
	from := date.AddDays(-calendarWindowDays)
	to := date.AddDays(calendarWindowDays)

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("from", from.Compact())
	q.Set("to", to.Compact())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	var payload calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty calendar response", ErrUnavailable)
	}

	for _, rec := range payload.Data {
		if rec.Date == date.String() {
			class := domain.HolidayClass(rec.HolDiv)
			return &domain.TradingDayRecord{
				Date:         date,
				IsTradingDay: class != domain.HolidayClassNonTrading,
				HolidayClass: class,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDateNotCovered, date)
}
