// Package stub provides a controllable in-memory market data provider
// for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/marketdata"
)

// Provider serves canned series and scripted failures.
type Provider struct {
	mu     sync.Mutex
	series map[string][]*domain.PriceBar
	errs   map[string]error
	fails  map[string]int // remaining transient failures before success
	calls  map[string]int
}

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{
		series: make(map[string][]*domain.PriceBar),
		errs:   make(map[string]error),
		fails:  make(map[string]int),
		calls:  make(map[string]int),
	}
}

// Compile-time interface check.
var _ marketdata.Provider = (*Provider)(nil)

// SetSeries registers the bars returned for an instrument.
func (p *Provider) SetSeries(instrumentID string, bars []*domain.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[instrumentID] = bars
}

// SetError makes every fetch for the instrument fail with err.
func (p *Provider) SetError(instrumentID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[instrumentID] = err
}

// FailFirst makes the first n fetches for the instrument fail
// transiently before succeeding.
func (p *Provider) FailFirst(instrumentID string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fails[instrumentID] = n
}

// Calls returns how many fetches were made for the instrument.
func (p *Provider) Calls(instrumentID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[instrumentID]
}

// Fetch implements marketdata.Provider.
func (p *Provider) Fetch(_ context.Context, instrumentID, _, _ string) ([]*domain.PriceBar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[instrumentID]++

	if err, ok := p.errs[instrumentID]; ok {
		return nil, err
	}
	if n := p.fails[instrumentID]; n > 0 {
		p.fails[instrumentID] = n - 1
		return nil, fmt.Errorf("%w: scripted failure", marketdata.ErrTransient)
	}
	bars, ok := p.series[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown instrument %s", marketdata.ErrPermanent, instrumentID)
	}
	return bars, nil
}
