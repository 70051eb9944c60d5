// Package backup confirms prior archival of the data a destructive
// mutation is about to overwrite. Once the only copy of a day's picks is
// gone it is gone forever, so "warn and continue" is not offered: either
// both durable markers exist or the destructive phase does not run.
package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// ErrBackupMissing is returned when either durable marker for the date is
// absent. Callers must abort the destructive sub-sequence entirely.
var ErrBackupMissing = errors.New("backup verification failed")

// Proof certifies that both markers existed for Date at verification time.
// Only the verifier constructs it; holding a Proof is the precondition for
// overwriting that date's selection artifact.
type Proof struct {
	Date           domain.Date
	SnapshotKey    string
	ArchivePresent bool // true when the rolling archive holds the date

	// nothing destroyed: set when there was no prior artifact to protect
	Vacuous bool
}

// Verifier checks the two independent durable markers for a date:
// the per-date snapshot object and a row inside the rolling archive.
type Verifier struct {
	store   objectstore.Store
	archive storage.ArchiveStore
	keys    objectstore.Keys
	log     zerolog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(store objectstore.Store, archive storage.ArchiveStore, keys objectstore.Keys, log zerolog.Logger) *Verifier {
	return &Verifier{store: store, archive: archive, keys: keys, log: log}
}

// Verify checks both markers for the date. Returns a Proof when both
// exist, ErrBackupMissing (wrapped with which marker failed) when either
// is absent, and the underlying error on infrastructure failure. Any
// non-nil error blocks the destructive phase.
func (v *Verifier) Verify(ctx context.Context, date domain.Date) (*Proof, error) {
	snapshotKey := v.keys.SnapshotKey(date)

	_, err := v.store.Head(ctx, snapshotKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			v.log.Error().Str("date", date.String()).Str("key", snapshotKey).
				Msg("backup verify: per-date snapshot missing")
			return nil, fmt.Errorf("%w: snapshot %s not found", ErrBackupMissing, snapshotKey)
		}
		return nil, fmt.Errorf("head snapshot %s: %w", snapshotKey, err)
	}

	contains, err := v.archive.ContainsDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check archive for %s: %w", date, err)
	}
	if !contains {
		v.log.Error().Str("date", date.String()).
			Msg("backup verify: rolling archive has no rows for date")
		return nil, fmt.Errorf("%w: archive has no rows for %s", ErrBackupMissing, date)
	}

	v.log.Info().Str("date", date.String()).Msg("backup verify: both markers present")
	return &Proof{Date: date, SnapshotKey: snapshotKey, ArchivePresent: true}, nil
}

// VacuousProof returns a proof for the case where no prior artifact
// exists, so there is nothing to protect.
func VacuousProof(date domain.Date) *Proof {
	return &Proof{Date: date, Vacuous: true}
}
