package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// DefaultTimeout bounds one ranking call; the service runs a full model
// pass, so this is generous.
const DefaultTimeout = 2 * time.Minute

// HTTPClient implements Ranker against the external ranking service.
type HTTPClient struct {
	endpoint string
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

// NewHTTPClient creates a ranking service client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Ranker = (*HTTPClient)(nil)

type rankRequest struct {
	SelectionDate domain.Date             `json:"selectionDate"`
	Instruments   []domain.InstrumentMeta `json:"instruments"`
	Bars          []barPayload            `json:"bars"`
}

type barPayload struct {
	InstrumentID string      `json:"instrumentId"`
	Date         domain.Date `json:"date"`
	Close        float64     `json:"close"`
	Volume       int64       `json:"volume"`
}

type rankResponse struct {
	Candidates []candidatePayload `json:"candidates"`
}

type candidatePayload struct {
	InstrumentID string  `json:"instrumentId"`
	Score        float64 `json:"score"`
	Confidence   string  `json:"confidence"`
	Category     string  `json:"category"`
	Rationale    string  `json:"rationale"`
}

// Rank submits the universe and returns the service's ranked candidates.
// All failures map to ErrUnavailable.
func (c *HTTPClient) Rank(ctx context.Context, req Request) ([]domain.RankedCandidate, error) {
	payload := rankRequest{
		SelectionDate: req.SelectionDate,
		Instruments:   req.Instruments,
	}
	for _, b := range req.Bars {
		payload.Bars = append(payload.Bars, barPayload{
			InstrumentID: b.InstrumentID,
			Date:         b.Date,
			Close:        b.Close,
			Volume:       b.Volume,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}

	var out rankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	candidates := make([]domain.RankedCandidate, 0, len(out.Candidates))
	for _, cp := range out.Candidates {
		candidates = append(candidates, domain.RankedCandidate{
			InstrumentID: cp.InstrumentID,
			Score:        cp.Score,
			Confidence:   domain.Confidence(cp.Confidence),
			Category:     cp.Category,
			Rationale:    cp.Rationale,
		})
	}
	return candidates, nil
}
