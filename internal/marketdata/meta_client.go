package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// MetaClient fetches the instrument universe from the metadata endpoint.
type MetaClient struct {
	endpoint string
	client   *http.Client
}

// NewMetaClient creates a metadata client.
func NewMetaClient(endpoint string, opts ...MetaOption) *MetaClient {
	c := &MetaClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MetaOption configures MetaClient.
type MetaOption func(*MetaClient)

// WithMetaTimeout sets HTTP client timeout.
func WithMetaTimeout(d time.Duration) MetaOption {
	return func(c *MetaClient) {
		c.client.Timeout = d
	}
}

// Fetch downloads the current universe.
func (c *MetaClient) Fetch(ctx context.Context) (*domain.MetaSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch metadata: status %d: %s", resp.StatusCode, body)
	}

	var set domain.MetaSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(set.Instruments) == 0 {
		return nil, fmt.Errorf("metadata endpoint returned empty universe")
	}
	return &set, nil
}
