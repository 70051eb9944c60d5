package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

type barKey struct {
	instrumentID string
	date         domain.Date
}

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
// Writes are idempotent by (instrument_id, date): an existing key is
// overwritten with the new values, matching the ReplacingMergeTree backend.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.PriceBar
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[barKey]*domain.PriceBar),
	}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds or refreshes bars for any number of instruments.
func (s *PriceSeriesStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	for _, b := range bars {
		if b == nil || b.InstrumentID == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		cp := *b
		s.data[barKey{b.InstrumentID, b.Date}] = &cp
	}
	return nil
}

// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
func (s *PriceSeriesStore) GetByInstrument(_ context.Context, instrumentID string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bars []*domain.PriceBar
	for k, b := range s.data {
		if k.instrumentID == instrumentID {
			cp := *b
			bars = append(bars, &cp)
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date < bars[j].Date
	})
	return bars, nil
}

// GetByDateRange retrieves bars for an instrument within [start, end].
func (s *PriceSeriesStore) GetByDateRange(_ context.Context, instrumentID string, start, end domain.Date) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bars []*domain.PriceBar
	for k, b := range s.data {
		if k.instrumentID == instrumentID && k.date >= start && k.date <= end {
			cp := *b
			bars = append(bars, &cp)
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date < bars[j].Date
	})
	return bars, nil
}
