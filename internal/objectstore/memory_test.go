package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "parquet/a.json", []byte("alpha")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "parquet/a.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "alpha" {
		t.Fatalf("Get = %q", got)
	}

	if _, err := s.Get(ctx, "parquet/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "two" {
		t.Fatalf("Get = %q, want overwritten body", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStoreDeleteMissingIsNoError(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Delete(context.Background(), "absent"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestMemoryStoreListPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, k := range []string{"parquet/b.json", "parquet/a.json", "other/c.json"} {
		if err := s.Put(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	infos, err := s.List(ctx, "parquet/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d objects, want 2", len(infos))
	}
	if infos[0].Key != "parquet/a.json" || infos[1].Key != "parquet/b.json" {
		t.Fatalf("not sorted by key: %v, %v", infos[0].Key, infos[1].Key)
	}
}

func TestMemoryStoreHead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("body")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	info, err := s.Head(ctx, "k")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if info.Size != 4 || info.LastModified.IsZero() {
		t.Fatalf("info = %+v", info)
	}

	if _, err := s.Head(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("body")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	got[0] = 'X'

	again, _ := s.Get(ctx, "k")
	if string(again) != "body" {
		t.Fatal("store aliases returned body")
	}
}

func TestSnapshotKeyLayout(t *testing.T) {
	keys := DefaultKeys()

	key := keys.SnapshotKey("2026-03-03")
	if key != "parquet/backtest/archive/picks_20260303.json" {
		t.Fatalf("SnapshotKey = %q", key)
	}
	// Snapshots must live under the archive prefix so reconciliation can
	// never select them for deletion.
	if len(key) < len(keys.ArchivePrefix) || key[:len(keys.ArchivePrefix)] != keys.ArchivePrefix {
		t.Fatalf("snapshot key %q escapes archive prefix %q", key, keys.ArchivePrefix)
	}
}

func TestKeysForDerivesFullLayout(t *testing.T) {
	for _, prefix := range []string{"data/", "data"} {
		keys := KeysFor(prefix)
		if keys.MutablePrefix != "data/" {
			t.Fatalf("KeysFor(%q).MutablePrefix = %q", prefix, keys.MutablePrefix)
		}
		// Every managed key must sit under the mutable prefix so
		// reconciliation listings see it.
		for name, key := range map[string]string{
			"ArchivePrefix": keys.ArchivePrefix,
			"ManifestKey":   keys.ManifestKey,
			"SelectionKey":  keys.SelectionKey,
			"MetaKey":       keys.MetaKey,
			"SnapshotKey":   keys.SnapshotKey("2026-03-03"),
		} {
			if !strings.HasPrefix(key, keys.MutablePrefix) {
				t.Fatalf("%s %q escapes mutable prefix %q", name, key, keys.MutablePrefix)
			}
		}
	}
}
