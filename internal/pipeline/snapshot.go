package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/backup"
	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
)

// Pick is one selected instrument inside the selection artifact.
type Pick struct {
	InstrumentID string            `json:"instrumentId"`
	Score        float64           `json:"score"`
	Action       domain.Action     `json:"action"`
	Confidence   domain.Confidence `json:"confidence"`
	Category     string            `json:"category,omitempty"`
	Rationale    string            `json:"rationale,omitempty"`
}

// Selection is the current cycle's picks: the one overwrite-in-place
// artifact in the store.
type Selection struct {
	SelectionDate domain.Date `json:"selectionDate"`
	GeneratedAt   time.Time   `json:"generatedAt"`
	Picks         []Pick      `json:"picks"`
}

// SelectionWriter is the only component that overwrites the selection
// artifact. The overwrite is expressed as a transition requiring a
// verification Proof for whatever the write destroys, so an unconditional
// replace cannot be written by accident.
type SelectionWriter struct {
	store objectstore.Store
	keys  objectstore.Keys
}

// NewSelectionWriter creates a SelectionWriter.
func NewSelectionWriter(store objectstore.Store, keys objectstore.Keys) *SelectionWriter {
	return &SelectionWriter{store: store, keys: keys}
}

// Current loads the live selection artifact. Returns (nil, nil) when no
// artifact exists yet.
func (w *SelectionWriter) Current(ctx context.Context) (*Selection, error) {
	body, err := w.store.Get(ctx, w.keys.SelectionKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load selection: %w", err)
	}
	var sel Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return &sel, nil
}

// Replace overwrites the selection artifact with next. proof must cover
// the date of the artifact being destroyed: either a verified proof for
// that date, or a vacuous proof when there was no prior artifact.
func (w *SelectionWriter) Replace(ctx context.Context, proof *backup.Proof, prior *Selection, next *Selection) ([]byte, error) {
	if proof == nil {
		return nil, errors.New("replace selection: missing backup proof")
	}
	if prior != nil {
		if proof.Vacuous {
			return nil, fmt.Errorf("replace selection: vacuous proof but prior artifact for %s exists", prior.SelectionDate)
		}
		if proof.Date != prior.SelectionDate {
			return nil, fmt.Errorf("replace selection: proof covers %s, prior artifact is %s", proof.Date, prior.SelectionDate)
		}
	}

	body, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode selection: %w", err)
	}
	if err := w.store.Put(ctx, w.keys.SelectionKey, body); err != nil {
		return nil, fmt.Errorf("write selection: %w", err)
	}
	return body, nil
}

// WriteSnapshot writes the per-date backup object for a selection. Done
// for the new selection right after it is produced, so the next run's
// verification finds its marker.
func (w *SelectionWriter) WriteSnapshot(ctx context.Context, sel *Selection) (string, []byte, error) {
	key := w.keys.SnapshotKey(sel.SelectionDate)
	body, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.store.Put(ctx, key, body); err != nil {
		return "", nil, fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return key, body, nil
}
