package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

type archiveKey struct {
	date         domain.Date
	instrumentID string
}

// ArchiveStore is an in-memory implementation of storage.ArchiveStore.
type ArchiveStore struct {
	mu   sync.RWMutex
	data map[archiveKey]*domain.ArchiveEntry
}

// NewArchiveStore creates a new in-memory archive store.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		data: make(map[archiveKey]*domain.ArchiveEntry),
	}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// Insert adds a new entry. Returns ErrDuplicateKey if the key exists.
func (s *ArchiveStore) Insert(_ context.Context, e *domain.ArchiveEntry) error {
	if e == nil || e.SelectionDate.IsZero() || e.InstrumentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := archiveKey{e.SelectionDate, e.InstrumentID}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.data[k] = &cp
	return nil
}

// GetByDate retrieves all entries for a selection date, ordered by instrument ID.
func (s *ArchiveStore) GetByDate(_ context.Context, date domain.Date) ([]*domain.ArchiveEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*domain.ArchiveEntry
	for k, e := range s.data {
		if k.date == date {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstrumentID < entries[j].InstrumentID
	})
	return entries, nil
}

// GetByInstrument retrieves all entries for an instrument, ordered by
// selection date ASC.
func (s *ArchiveStore) GetByInstrument(_ context.Context, instrumentID string) ([]*domain.ArchiveEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*domain.ArchiveEntry
	for k, e := range s.data {
		if k.instrumentID == instrumentID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SelectionDate < entries[j].SelectionDate
	})
	return entries, nil
}

// ContainsDate reports whether at least one entry exists for the date.
func (s *ArchiveStore) ContainsDate(_ context.Context, date domain.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k := range s.data {
		if k.date == date {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the total number of entries. Test helper.
func (s *ArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
