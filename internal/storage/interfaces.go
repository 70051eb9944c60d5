package storage

import (
	"context"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// ArchiveStore provides access to the rolling archive of past picks.
// The table is append-only: rows are keyed by (selection_date, instrument_id)
// and never updated in place. Deletion belongs to a separate retention job.
type ArchiveStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if the
	// (selection_date, instrument_id) key already exists.
	Insert(ctx context.Context, e *domain.ArchiveEntry) error

	// GetByDate retrieves all entries for a selection date, ordered by
	// instrument ID.
	GetByDate(ctx context.Context, date domain.Date) ([]*domain.ArchiveEntry, error)

	// GetByInstrument retrieves all entries for an instrument, ordered by
	// selection date ASC.
	GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.ArchiveEntry, error)

	// ContainsDate reports whether at least one entry exists for the date.
	ContainsDate(ctx context.Context, date domain.Date) (bool, error)
}

// PriceSeriesStore provides access to the daily price bar timeseries.
// Writes are idempotent by (instrument_id, date): re-inserting an existing
// key leaves exactly one row with the new values, so a retried run never
// duplicates or zeroes history.
type PriceSeriesStore interface {
	// InsertBulk adds or refreshes bars for any number of instruments.
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
	GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.PriceBar, error)

	// GetByDateRange retrieves bars for an instrument within [start, end].
	GetByDateRange(ctx context.Context, instrumentID string, start, end domain.Date) ([]*domain.PriceBar, error)
}

// RecommendationStore persists merged per-instrument decisions keyed by
// (selection_date, instrument_id). Put has upsert semantics because a
// refinement pass legitimately rewrites final values; the merge engine is
// the sole writer.
type RecommendationStore interface {
	// Put stores a record, replacing any existing record for the key.
	Put(ctx context.Context, date domain.Date, rec *domain.RecommendationRecord) error

	// GetByDate retrieves all records for a selection date, ordered by
	// instrument ID.
	GetByDate(ctx context.Context, date domain.Date) ([]*domain.RecommendationRecord, error)

	// Get retrieves one record. Returns ErrNotFound if absent.
	Get(ctx context.Context, date domain.Date, instrumentID string) (*domain.RecommendationRecord, error)
}
