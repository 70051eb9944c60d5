// Package archive appends per-date results to the rolling archive.
// The dataset only ever grows: retried triggers re-submit overlapping
// batches and must land exactly the rows that are genuinely new.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// WriteResult reports what one batch write actually did.
type WriteResult struct {
	Appended int // genuinely new keys
	Skipped  int // keys that already existed, left untouched
}

// Writer is the sole creator of archive entries. Idempotent at the level
// of the (selectionDate, instrumentId) key.
type Writer struct {
	store storage.ArchiveStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewWriter creates a Writer.
func NewWriter(store storage.ArchiveStore, log zerolog.Logger) *Writer {
	return &Writer{store: store, log: log, now: time.Now}
}

// WithClock overrides the clock. Test helper.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// WriteBatch appends the batch. Existing keys are skipped and logged;
// re-invoking with the same batch yields zero new rows and zero errors.
func (w *Writer) WriteBatch(ctx context.Context, entries []*domain.ArchiveEntry) (*WriteResult, error) {
	result := &WriteResult{}

	for _, e := range entries {
		if e == nil || e.SelectionDate.IsZero() || e.InstrumentID == "" {
			return result, fmt.Errorf("archive write: %w", storage.ErrInvalidInput)
		}

		entry := *e
		if entry.CreatedAt == 0 {
			entry.CreatedAt = w.now().UnixMilli()
		}

		err := w.store.Insert(ctx, &entry)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				w.log.Debug().
					Str("date", entry.SelectionDate.String()).
					Str("instrument", entry.InstrumentID).
					Msg("archive write: key exists, skipping")
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("archive write %s/%s: %w", entry.SelectionDate, entry.InstrumentID, err)
		}
		result.Appended++
	}

	w.log.Info().
		Int("appended", result.Appended).
		Int("skipped", result.Skipped).
		Msg("archive batch written")
	return result, nil
}
