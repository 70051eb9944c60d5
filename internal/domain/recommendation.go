package domain

// Action is the directional decision for one instrument.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Directional reports whether the action is buy or sell.
func (a Action) Directional() bool {
	return a == ActionBuy || a == ActionSell
}

// Opposes reports whether two actions point in opposite directions.
// Hold opposes nothing.
func (a Action) Opposes(b Action) bool {
	return (a == ActionBuy && b == ActionSell) || (a == ActionSell && b == ActionBuy)
}

// Confidence is the scoring provider's conviction level for a base decision.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RecommendationRecord is the authoritative per-instrument decision.
// Final* equals Refined* when HasRefinement, else Base*. OverrideFlag is set
// when a refinement reverses the direction of a high-confidence base action.
type RecommendationRecord struct {
	InstrumentID string

	BaseScore  float64
	BaseAction Action

	RefinedScore  *float64
	RefinedAction *Action

	FinalScore  float64
	FinalAction Action

	Confidence    Confidence
	HasRefinement bool
	OverrideFlag  bool
}

// Refinement is a later re-scoring of one instrument. It may arrive hours
// after the base pass and always supersedes it when present.
type Refinement struct {
	InstrumentID string
	Score        float64
}

// RankedCandidate is one item of the scoring provider's output, treated as
// an opaque input to the base decision.
type RankedCandidate struct {
	InstrumentID string
	Score        float64
	Confidence   Confidence
	Category     string
	Rationale    string
}
