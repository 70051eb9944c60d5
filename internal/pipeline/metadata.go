package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
)

// MetadataSource supplies the instrument universe for a run. External
// collaborator; the pipeline only needs the set back.
type MetadataSource interface {
	Fetch(ctx context.Context) (*domain.MetaSet, error)
}

// metadataLoader fetches the universe with a last-known-good fallback.
// A fresh fetch is cached in the object store; when the provider is down
// the cached copy serves, or an empty universe when no copy exists,
// marking the step degraded either way.
type metadataLoader struct {
	source MetadataSource
	store  objectstore.Store
	keys   objectstore.Keys
	log    zerolog.Logger
}

// load returns the universe, the metadata object body it corresponds to,
// and whether the result came from the fallback cache.
func (l *metadataLoader) load(ctx context.Context) (*domain.MetaSet, []byte, bool, error) {
	meta, err := l.source.Fetch(ctx)
	if err == nil {
		body, cacheErr := l.cache(ctx, meta)
		if cacheErr != nil {
			// The universe itself is good; a failed cache write only
			// costs the next run its fallback.
			l.log.Warn().Err(cacheErr).Msg("metadata cache write failed")
		}
		return meta, body, false, nil
	}

	l.log.Warn().Err(err).Msg("metadata fetch failed, trying last-known-good")
	body, getErr := l.store.Get(ctx, l.keys.MetaKey)
	if getErr != nil {
		if errors.Is(getErr, objectstore.ErrNotFound) {
			// No cached copy either: continue with an empty universe so the
			// rest of the run can still publish what it has.
			l.log.Warn().Err(err).Msg("no cached metadata, continuing with empty universe")
			return &domain.MetaSet{}, nil, true, nil
		}
		return nil, nil, false, fmt.Errorf("metadata fallback read: %w", getErr)
	}

	var cached domain.MetaSet
	if decErr := json.Unmarshal(body, &cached); decErr != nil {
		return nil, nil, false, fmt.Errorf("metadata fallback decode: %w", decErr)
	}
	return &cached, body, true, nil
}

// cache writes the metadata object only when its content changed, and
// returns the canonical body either way.
func (l *metadataLoader) cache(ctx context.Context, meta *domain.MetaSet) ([]byte, error) {
	body, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	// Checksum gate: an unchanged universe is not rewritten, keeping the
	// object's mtime meaningful for drift inspection.
	prior, err := l.store.Get(ctx, l.keys.MetaKey)
	if err == nil && sha256.Sum256(prior) == sha256.Sum256(body) {
		return body, nil
	}
	if err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		return body, fmt.Errorf("read prior metadata: %w", err)
	}

	if err := l.store.Put(ctx, l.keys.MetaKey, body); err != nil {
		return body, fmt.Errorf("write metadata: %w", err)
	}
	return body, nil
}
