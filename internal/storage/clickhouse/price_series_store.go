package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (instrument_id, date), so
// re-inserting an existing key collapses to one row. Reads use FINAL to
// observe the collapsed state.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds or refreshes bars for any number of instruments.
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	for _, b := range bars {
		if b == nil || b.InstrumentID == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			instrument_id, date, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.InstrumentID, b.Date.Time(),
			b.Open, b.High, b.Low, b.Close, uint64(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
func (s *PriceSeriesStore) GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.PriceBar, error) {
	query := `
		SELECT instrument_id, date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE instrument_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query price bars: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetByDateRange retrieves bars for an instrument within [start, end].
func (s *PriceSeriesStore) GetByDateRange(ctx context.Context, instrumentID string, start, end domain.Date) ([]*domain.PriceBar, error) {
	query := `
		SELECT instrument_id, date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE instrument_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, start.Time(), end.Time())
	if err != nil {
		return nil, fmt.Errorf("query price bars by range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

type barRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPriceBars(rows barRows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar
	for rows.Next() {
		var (
			b      domain.PriceBar
			date   time.Time
			volume uint64
		)
		if err := rows.Scan(&b.InstrumentID, &date, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		b.Date = domain.NewDate(date)
		b.Volume = int64(volume)
		bars = append(bars, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bars: %w", err)
	}
	return bars, nil
}
