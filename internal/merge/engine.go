package merge

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Engine folds base candidates and refinements into final records.
// Refinements always win; the engine's job is to make the supersession
// auditable rather than silent.
type Engine struct {
	bands ActionBands
	log   zerolog.Logger
}

// NewEngine creates an Engine with the given bands.
func NewEngine(bands ActionBands, log zerolog.Logger) *Engine {
	return &Engine{bands: bands, log: log}
}

// BuildBase turns one scored candidate into a record with no refinement.
func (e *Engine) BuildBase(c domain.RankedCandidate) *domain.RecommendationRecord {
	action := e.bands.Classify(c.Score)
	return &domain.RecommendationRecord{
		InstrumentID: c.InstrumentID,
		BaseScore:    c.Score,
		BaseAction:   action,
		FinalScore:   c.Score,
		FinalAction:  action,
		Confidence:   c.Confidence,
	}
}

// ApplyRefinement folds one refinement into a record. The refined score
// and action become final unconditionally. OverrideFlag is raised only
// when the refinement reverses the direction of a high-confidence base
// call: that combination is the one worth a human look, since the system
// was sure and then changed its mind.
func (e *Engine) ApplyRefinement(rec *domain.RecommendationRecord, ref domain.Refinement) {
	refinedAction := e.bands.Classify(ref.Score)

	rec.RefinedScore = &ref.Score
	rec.RefinedAction = &refinedAction
	rec.FinalScore = ref.Score
	rec.FinalAction = refinedAction
	rec.HasRefinement = true

	if refinedAction.Opposes(rec.BaseAction) && rec.Confidence == domain.ConfidenceHigh {
		rec.OverrideFlag = true
		e.log.Warn().
			Str("instrument", rec.InstrumentID).
			Str("baseAction", string(rec.BaseAction)).
			Str("refinedAction", string(refinedAction)).
			Float64("baseScore", rec.BaseScore).
			Float64("refinedScore", ref.Score).
			Msg("refinement reversed a high-confidence call")
	}
}

// MergeAll builds records for every candidate and applies any matching
// refinements. Refinements for unknown instruments are dropped with a
// warning; results come back sorted by instrument ID.
func (e *Engine) MergeAll(candidates []domain.RankedCandidate, refinements []domain.Refinement) []*domain.RecommendationRecord {
	byID := make(map[string]*domain.RecommendationRecord, len(candidates))
	records := make([]*domain.RecommendationRecord, 0, len(candidates))
	for _, c := range candidates {
		rec := e.BuildBase(c)
		byID[c.InstrumentID] = rec
		records = append(records, rec)
	}

	for _, ref := range refinements {
		rec, ok := byID[ref.InstrumentID]
		if !ok {
			e.log.Warn().
				Str("instrument", ref.InstrumentID).
				Msg("refinement for unknown instrument, dropping")
			continue
		}
		e.ApplyRefinement(rec, ref)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].InstrumentID < records[j].InstrumentID
	})
	return records
}
