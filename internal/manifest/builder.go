// Package manifest builds, publishes and reconciles against the derived
// object inventory. The manifest lists every object the current run
// intends to keep; anything else under the mutable prefix is garbage.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
)

// Builder accumulates the desired object set for one run.
type Builder struct {
	items map[string]domain.ManifestItem
	now   func() time.Time
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		items: make(map[string]domain.ManifestItem),
		now:   time.Now,
	}
}

// WithClock overrides the clock. Test helper.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Add records an object under its key. The checksum is the hex SHA-256
// of the body; adding the same key twice replaces the earlier record.
func (b *Builder) Add(key string, body []byte) {
	sum := sha256.Sum256(body)
	b.items[key] = domain.ManifestItem{
		Key:      key,
		Bytes:    int64(len(body)),
		Checksum: hex.EncodeToString(sum[:]),
		MTime:    b.now().UTC(),
	}
}

// Build produces the manifest with items sorted by key.
func (b *Builder) Build() *domain.Manifest {
	items := make([]domain.ManifestItem, 0, len(b.items))
	for _, it := range b.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	return &domain.Manifest{
		GeneratedAt: b.now().UTC(),
		Items:       items,
	}
}

// Publish writes the manifest to its well-known key. The manifest never
// lists itself.
func Publish(ctx context.Context, store objectstore.Store, keys objectstore.Keys, m *domain.Manifest) error {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest marshal: %w", err)
	}
	if err := store.Put(ctx, keys.ManifestKey, body); err != nil {
		return fmt.Errorf("manifest publish: %w", err)
	}
	return nil
}

// Load fetches and decodes the manifest at its well-known key.
func Load(ctx context.Context, store objectstore.Store, keys objectstore.Keys) (*domain.Manifest, error) {
	body, err := store.Get(ctx, keys.ManifestKey)
	if err != nil {
		return nil, fmt.Errorf("manifest load: %w", err)
	}
	var m domain.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("manifest decode: %w", err)
	}
	return &m, nil
}
