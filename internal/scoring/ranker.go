// Package scoring defines the external ranking collaborator. The
// heuristic itself lives outside this system; the pipeline only needs
// ranked candidates back for the universe it hands over.
package scoring

import (
	"context"
	"errors"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// ErrUnavailable is returned when the ranking service cannot be reached
// or returns an unusable response.
var ErrUnavailable = errors.New("ranking service unavailable")

// Request is one scoring call: the instrument universe plus the price
// history the ranker may use.
type Request struct {
	SelectionDate domain.Date
	Instruments   []domain.InstrumentMeta
	Bars          []*domain.PriceBar
}

// Ranker scores and ranks an instrument universe for a selection date.
type Ranker interface {
	Rank(ctx context.Context, req Request) ([]domain.RankedCandidate, error)
}
