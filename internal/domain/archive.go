package domain

// MetricsSnapshot is the per-instrument state captured when a day's picks
// are archived. Immutable once written.
type MetricsSnapshot struct {
	Score      float64
	Action     Action
	Confidence Confidence
	Category   string // provider category, e.g. "trending"
	Rationale  string // provider rationale text, opaque
	ClosePrice float64
	ChangePct  float64
}

// ArchiveEntry is one row of the rolling archive, keyed uniquely by
// (SelectionDate, InstrumentID). Rows are never updated or deleted by the
// pipeline; retention is a separate, explicitly authorized job.
type ArchiveEntry struct {
	SelectionDate Date
	InstrumentID  string
	Metrics       MetricsSnapshot
	CreatedAt     int64 // unix ms, write time
}
