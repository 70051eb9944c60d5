// Package merge reduces base recommendations and later refinements into
// the final per-instrument decision set.
package merge

import "github.com/mountaincenter/dash-plotly/internal/domain"

// Band is one half-open score interval mapping to an action. Upper is the
// exclusive upper bound; nil means unbounded.
type Band struct {
	Action domain.Action
	Upper  *float64
}

// ActionBands partitions the score line into ordered, contiguous bands.
// Thresholds are configuration, not code: changing where sell ends or buy
// begins is a data edit. A score that lands exactly on a boundary resolves
// to hold rather than either directional action.
type ActionBands []Band

func f(v float64) *float64 { return &v }

// DefaultBands is the production thresholding: sell below -0.5, buy above
// +0.5, hold in between.
func DefaultBands() ActionBands {
	return ActionBands{
		{Action: domain.ActionSell, Upper: f(-0.5)},
		{Action: domain.ActionHold, Upper: f(0.5)},
		{Action: domain.ActionBuy},
	}
}

// Classify maps a score to an action. Scores equal to any band boundary
// classify as hold.
func (b ActionBands) Classify(score float64) domain.Action {
	for _, band := range b {
		if band.Upper == nil {
			return band.Action
		}
		if score == *band.Upper {
			return domain.ActionHold
		}
		if score < *band.Upper {
			return band.Action
		}
	}
	return domain.ActionHold
}
