package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

type recKey struct {
	date         domain.Date
	instrumentID string
}

// RecommendationStore is an in-memory implementation of storage.RecommendationStore.
type RecommendationStore struct {
	mu   sync.RWMutex
	data map[recKey]*domain.RecommendationRecord
}

// NewRecommendationStore creates a new in-memory recommendation store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{
		data: make(map[recKey]*domain.RecommendationRecord),
	}
}

// Compile-time interface check.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)

// Put stores a record, replacing any existing record for the key.
func (s *RecommendationStore) Put(_ context.Context, date domain.Date, rec *domain.RecommendationRecord) error {
	if rec == nil || date.IsZero() || rec.InstrumentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.data[recKey{date, rec.InstrumentID}] = &cp
	return nil
}

// GetByDate retrieves all records for a selection date, ordered by instrument ID.
func (s *RecommendationStore) GetByDate(_ context.Context, date domain.Date) ([]*domain.RecommendationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*domain.RecommendationRecord
	for k, r := range s.data {
		if k.date == date {
			cp := *r
			recs = append(recs, &cp)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].InstrumentID < recs[j].InstrumentID
	})
	return recs, nil
}

// Get retrieves one record. Returns ErrNotFound if absent.
func (s *RecommendationStore) Get(_ context.Context, date domain.Date, instrumentID string) (*domain.RecommendationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[recKey{date, instrumentID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}
