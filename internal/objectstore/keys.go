package objectstore

import (
	"strings"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Keys is the store layout: where the mutable artifacts, the manifest and
// the archival snapshots live. The archive prefix is never touched by
// reconciliation; only the explicitly authorized retention job may delete
// under it.
type Keys struct {
	// MutablePrefix covers every object reconciliation may manage.
	MutablePrefix string

	// ArchivePrefix holds per-date snapshot backups. Must sit under
	// MutablePrefix so listings see it, yet it is excluded from deletes.
	ArchivePrefix string

	// ManifestKey is the manifest object itself, also never deleted.
	ManifestKey string

	// SelectionKey is the selection artifact: the one overwrite-in-place
	// resource, guarded by backup verification.
	SelectionKey string

	// MetaKey is the instrument metadata object, doubling as the
	// last-known-good fallback for the fetch-metadata step.
	MetaKey string
}

// KeysFor derives the full layout under a mutable prefix, keeping the
// archive prefix inside it so listings see every managed object.
func KeysFor(mutablePrefix string) Keys {
	if !strings.HasSuffix(mutablePrefix, "/") {
		mutablePrefix += "/"
	}
	return Keys{
		MutablePrefix: mutablePrefix,
		ArchivePrefix: mutablePrefix + "backtest/archive/",
		ManifestKey:   mutablePrefix + "manifest.json",
		SelectionKey:  mutablePrefix + "backtest/trading_recommendation.json",
		MetaKey:       mutablePrefix + "instrument_meta.json",
	}
}

// DefaultKeys returns the production layout.
func DefaultKeys() Keys {
	return KeysFor("parquet/")
}

// SnapshotKey returns the per-date snapshot backup key for a selection date.
func (k Keys) SnapshotKey(date domain.Date) string {
	return k.ArchivePrefix + "picks_" + date.Compact() + ".json"
}
