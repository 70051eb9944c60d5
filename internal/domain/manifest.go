package domain

import "time"

// ManifestItem describes one object that should exist under the mutable
// prefix of the object store.
type ManifestItem struct {
	Key      string    `json:"key"`
	Bytes    int64     `json:"bytes"`
	Checksum string    `json:"checksum"` // hex sha256 of the object body
	MTime    time.Time `json:"mtime"`
}

// Manifest declares the desired object set for the mutable prefix.
// Regenerated once per successful run; items are sorted by key.
// The manifest object itself and the archive prefix are never candidates
// for reconciliation deletes.
type Manifest struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Items       []ManifestItem `json:"items"`
}

// Item returns the item with the given key, or nil.
func (m *Manifest) Item(key string) *ManifestItem {
	for i := range m.Items {
		if m.Items[i].Key == key {
			return &m.Items[i]
		}
	}
	return nil
}

// Keys returns all declared keys in manifest order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		keys = append(keys, it.Key)
	}
	return keys
}
