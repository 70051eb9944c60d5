package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
	"github.com/mountaincenter/dash-plotly/internal/storage/postgres"
)

func archiveEntry(date domain.Date, instrument string, score float64) *domain.ArchiveEntry {
	return &domain.ArchiveEntry{
		SelectionDate: date,
		InstrumentID:  instrument,
		Metrics: domain.MetricsSnapshot{
			Score:      score,
			Action:     domain.ActionBuy,
			Confidence: domain.ConfidenceHigh,
			Category:   "trending",
			Rationale:  "momentum continuation",
			ClosePrice: 1234.5,
			ChangePct:  2.1,
		},
		CreatedAt: time.Date(2026, 3, 3, 22, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestArchiveStore_InsertAndGetByDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewArchiveStore(pool)
	ctx := context.Background()

	date := domain.Date("2026-03-03")
	require.NoError(t, store.Insert(ctx, archiveEntry(date, "7203", 0.82)))
	require.NoError(t, store.Insert(ctx, archiveEntry(date, "0001", 0.61)))
	require.NoError(t, store.Insert(ctx, archiveEntry("2026-03-04", "7203", 0.40)))

	entries, err := store.GetByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ordered by instrument ID.
	assert.Equal(t, "0001", entries[0].InstrumentID)
	assert.Equal(t, "7203", entries[1].InstrumentID)
	assert.Equal(t, date, entries[0].SelectionDate)
	assert.Equal(t, 0.82, entries[1].Metrics.Score)
	assert.Equal(t, domain.ActionBuy, entries[1].Metrics.Action)
	assert.Equal(t, domain.ConfidenceHigh, entries[1].Metrics.Confidence)
	assert.Equal(t, "trending", entries[1].Metrics.Category)
	assert.Equal(t, "momentum continuation", entries[1].Metrics.Rationale)
	assert.Equal(t, 1234.5, entries[1].Metrics.ClosePrice)
	assert.Equal(t, 2.1, entries[1].Metrics.ChangePct)
	assert.NotZero(t, entries[1].CreatedAt)
}

func TestArchiveStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewArchiveStore(pool)
	ctx := context.Background()

	entry := archiveEntry("2026-03-03", "7203", 0.82)
	require.NoError(t, store.Insert(ctx, entry))

	// Same key with different metrics still refuses.
	again := archiveEntry("2026-03-03", "7203", 0.99)
	err := store.Insert(ctx, again)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	entries, err := store.GetByDate(ctx, "2026-03-03")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0.82, entries[0].Metrics.Score, "first write must win")
}

func TestArchiveStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewArchiveStore(pool)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry *domain.ArchiveEntry
	}{
		{"nil entry", nil},
		{"empty date", archiveEntry("", "7203", 0.5)},
		{"empty instrument", archiveEntry("2026-03-03", "", 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Insert(ctx, tt.entry)
			assert.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}
}

func TestArchiveStore_GetByInstrument(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewArchiveStore(pool)
	ctx := context.Background()

	// Inserted out of date order.
	require.NoError(t, store.Insert(ctx, archiveEntry("2026-03-05", "7203", 0.3)))
	require.NoError(t, store.Insert(ctx, archiveEntry("2026-03-03", "7203", 0.8)))
	require.NoError(t, store.Insert(ctx, archiveEntry("2026-03-04", "9984", 0.6)))

	entries, err := store.GetByInstrument(ctx, "7203")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.Date("2026-03-03"), entries[0].SelectionDate)
	assert.Equal(t, domain.Date("2026-03-05"), entries[1].SelectionDate)
}

func TestArchiveStore_ContainsDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewArchiveStore(pool)
	ctx := context.Background()

	has, err := store.ContainsDate(ctx, "2026-03-03")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Insert(ctx, archiveEntry("2026-03-03", "7203", 0.8)))

	has, err = store.ContainsDate(ctx, "2026-03-03")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.ContainsDate(ctx, "2026-03-04")
	require.NoError(t, err)
	assert.False(t, has)
}
