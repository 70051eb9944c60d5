package postgres

import (
	"context"
	"fmt"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// RecommendationStore implements storage.RecommendationStore using PostgreSQL.
// Put upserts: the merge engine is the sole writer and a refinement pass
// legitimately rewrites final values for a key.
type RecommendationStore struct {
	pool *Pool
}

// NewRecommendationStore creates a new RecommendationStore.
func NewRecommendationStore(pool *Pool) *RecommendationStore {
	return &RecommendationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)

// Put stores a record, replacing any existing record for the key.
func (s *RecommendationStore) Put(ctx context.Context, date domain.Date, rec *domain.RecommendationRecord) error {
	if rec == nil || date.IsZero() || rec.InstrumentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO recommendation_records (
			selection_date, instrument_id,
			base_score, base_action, refined_score, refined_action,
			final_score, final_action,
			confidence, has_refinement, override_flag
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8,
			$9, $10, $11
		)
		ON CONFLICT (selection_date, instrument_id) DO UPDATE SET
			base_score = EXCLUDED.base_score,
			base_action = EXCLUDED.base_action,
			refined_score = EXCLUDED.refined_score,
			refined_action = EXCLUDED.refined_action,
			final_score = EXCLUDED.final_score,
			final_action = EXCLUDED.final_action,
			confidence = EXCLUDED.confidence,
			has_refinement = EXCLUDED.has_refinement,
			override_flag = EXCLUDED.override_flag
	`

	var refinedAction *string
	if rec.RefinedAction != nil {
		a := string(*rec.RefinedAction)
		refinedAction = &a
	}

	_, err := s.pool.Exec(ctx, query,
		date.Time(), rec.InstrumentID,
		rec.BaseScore, string(rec.BaseAction), rec.RefinedScore, refinedAction,
		rec.FinalScore, string(rec.FinalAction),
		string(rec.Confidence), rec.HasRefinement, rec.OverrideFlag,
	)
	if err != nil {
		return fmt.Errorf("put recommendation record: %w", err)
	}
	return nil
}

// GetByDate retrieves all records for a selection date, ordered by instrument ID.
func (s *RecommendationStore) GetByDate(ctx context.Context, date domain.Date) ([]*domain.RecommendationRecord, error) {
	query := `
		SELECT instrument_id,
			base_score, base_action, refined_score, refined_action,
			final_score, final_action,
			confidence, has_refinement, override_flag
		FROM recommendation_records
		WHERE selection_date = $1
		ORDER BY instrument_id ASC
	`

	rows, err := s.pool.Query(ctx, query, date.Time())
	if err != nil {
		return nil, fmt.Errorf("query recommendation records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.RecommendationRecord
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation records: %w", err)
	}
	return recs, nil
}

// Get retrieves one record. Returns ErrNotFound if absent.
func (s *RecommendationStore) Get(ctx context.Context, date domain.Date, instrumentID string) (*domain.RecommendationRecord, error) {
	query := `
		SELECT instrument_id,
			base_score, base_action, refined_score, refined_action,
			final_score, final_action,
			confidence, has_refinement, override_flag
		FROM recommendation_records
		WHERE selection_date = $1 AND instrument_id = $2
	`

	rows, err := s.pool.Query(ctx, query, date.Time(), instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query recommendation record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query recommendation record: %w", err)
		}
		return nil, storage.ErrNotFound
	}
	return scanRecommendation(rows)
}

type recScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row recScanner) (*domain.RecommendationRecord, error) {
	var (
		rec           domain.RecommendationRecord
		baseAction    string
		refinedAction *string
		finalAction   string
		confidence    string
	)
	err := row.Scan(
		&rec.InstrumentID,
		&rec.BaseScore, &baseAction, &rec.RefinedScore, &refinedAction,
		&rec.FinalScore, &finalAction,
		&confidence, &rec.HasRefinement, &rec.OverrideFlag,
	)
	if err != nil {
		return nil, fmt.Errorf("scan recommendation record: %w", err)
	}
	rec.BaseAction = domain.Action(baseAction)
	rec.FinalAction = domain.Action(finalAction)
	rec.Confidence = domain.Confidence(confidence)
	if refinedAction != nil {
		a := domain.Action(*refinedAction)
		rec.RefinedAction = &a
	}
	return &rec, nil
}
