// Package stub provides a scripted ranker for tests.
package stub

import (
	"context"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/scoring"
)

// Ranker returns canned candidates or a scripted error.
type Ranker struct {
	mu         sync.Mutex
	candidates []domain.RankedCandidate
	err        error
	lastReq    *scoring.Request
}

// NewRanker creates an empty stub ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Compile-time interface check.
var _ scoring.Ranker = (*Ranker)(nil)

// SetCandidates registers the response for subsequent Rank calls.
func (r *Ranker) SetCandidates(cs []domain.RankedCandidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = cs
}

// SetError makes Rank fail with err.
func (r *Ranker) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// LastRequest returns the most recent request, or nil.
func (r *Ranker) LastRequest() *scoring.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReq
}

// Rank implements scoring.Ranker.
func (r *Ranker) Rank(_ context.Context, req scoring.Request) ([]domain.RankedCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReq = &req
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.RankedCandidate, len(r.candidates))
	copy(out, r.candidates)
	return out, nil
}
