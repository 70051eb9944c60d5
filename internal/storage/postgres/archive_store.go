package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// ArchiveStore implements storage.ArchiveStore using PostgreSQL.
type ArchiveStore struct {
	pool *Pool
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(pool *Pool) *ArchiveStore {
	return &ArchiveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// Insert adds a new entry. Returns ErrDuplicateKey if the
// (selection_date, instrument_id) key already exists.
func (s *ArchiveStore) Insert(ctx context.Context, e *domain.ArchiveEntry) error {
	if e == nil || e.SelectionDate.IsZero() || e.InstrumentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO archive_entries (
			selection_date, instrument_id,
			score, action, confidence, category, rationale,
			close_price, change_pct, created_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.SelectionDate.Time(), e.InstrumentID,
		e.Metrics.Score, string(e.Metrics.Action), string(e.Metrics.Confidence),
		e.Metrics.Category, e.Metrics.Rationale,
		e.Metrics.ClosePrice, e.Metrics.ChangePct, e.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert archive entry: %w", err)
	}
	return nil
}

// GetByDate retrieves all entries for a selection date, ordered by instrument ID.
func (s *ArchiveStore) GetByDate(ctx context.Context, date domain.Date) ([]*domain.ArchiveEntry, error) {
	query := `
		SELECT selection_date, instrument_id,
			score, action, confidence, category, rationale,
			close_price, change_pct, created_at
		FROM archive_entries
		WHERE selection_date = $1
		ORDER BY instrument_id ASC
	`

	rows, err := s.pool.Query(ctx, query, date.Time())
	if err != nil {
		return nil, fmt.Errorf("query archive entries by date: %w", err)
	}
	defer rows.Close()

	return scanArchiveEntries(rows)
}

// GetByInstrument retrieves all entries for an instrument, ordered by
// selection date ASC.
func (s *ArchiveStore) GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.ArchiveEntry, error) {
	query := `
		SELECT selection_date, instrument_id,
			score, action, confidence, category, rationale,
			close_price, change_pct, created_at
		FROM archive_entries
		WHERE instrument_id = $1
		ORDER BY selection_date ASC
	`

	rows, err := s.pool.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query archive entries by instrument: %w", err)
	}
	defer rows.Close()

	return scanArchiveEntries(rows)
}

// ContainsDate reports whether at least one entry exists for the date.
func (s *ArchiveStore) ContainsDate(ctx context.Context, date domain.Date) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM archive_entries WHERE selection_date = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, date.Time()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check archive contains date: %w", err)
	}
	return exists, nil
}

// rowScanner abstracts pgx.Rows for scanning.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanArchiveEntries(rows rowScanner) ([]*domain.ArchiveEntry, error) {
	var entries []*domain.ArchiveEntry
	for rows.Next() {
		var (
			e          domain.ArchiveEntry
			date       time.Time
			action     string
			confidence string
		)
		err := rows.Scan(
			&date, &e.InstrumentID,
			&e.Metrics.Score, &action, &confidence,
			&e.Metrics.Category, &e.Metrics.Rationale,
			&e.Metrics.ClosePrice, &e.Metrics.ChangePct, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}
		e.SelectionDate = domain.NewDate(date)
		e.Metrics.Action = domain.Action(action)
		e.Metrics.Confidence = domain.Confidence(confidence)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive entries: %w", err)
	}
	return entries, nil
}
