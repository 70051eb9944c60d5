package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/objectstore"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 2, 23, 10, 0, 0, time.UTC) }
}

func TestBuilderSortsAndChecksums(t *testing.T) {
	b := NewBuilder().WithClock(fixedClock())
	b.Add("parquet/zzz.json", []byte("last"))
	b.Add("parquet/aaa.json", []byte("first"))

	m := b.Build()
	if len(m.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(m.Items))
	}
	if m.Items[0].Key != "parquet/aaa.json" || m.Items[1].Key != "parquet/zzz.json" {
		t.Fatalf("items not sorted by key: %v", m.Keys())
	}

	sum := sha256.Sum256([]byte("first"))
	if m.Items[0].Checksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum = %q, want sha256 of body", m.Items[0].Checksum)
	}
	if m.Items[0].Bytes != int64(len("first")) {
		t.Fatalf("bytes = %d, want %d", m.Items[0].Bytes, len("first"))
	}
}

func TestBuilderAddReplacesKey(t *testing.T) {
	b := NewBuilder().WithClock(fixedClock())
	b.Add("parquet/x.json", []byte("one"))
	b.Add("parquet/x.json", []byte("two"))

	m := b.Build()
	if len(m.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(m.Items))
	}
	if m.Items[0].Bytes != 3 {
		t.Fatalf("bytes = %d, want size of latest body", m.Items[0].Bytes)
	}
}

func TestPublishLoadRoundTrip(t *testing.T) {
	store := objectstore.NewMemoryStore()
	keys := objectstore.DefaultKeys()

	b := NewBuilder().WithClock(fixedClock())
	b.Add(keys.SelectionKey, []byte(`{"picks":[]}`))
	m := b.Build()

	if err := Publish(context.Background(), store, keys, m); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, err := Load(context.Background(), store, keys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Key != keys.SelectionKey {
		t.Fatalf("round trip lost items: %+v", got.Items)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	store := objectstore.NewMemoryStore()
	_, err := Load(context.Background(), store, objectstore.DefaultKeys())
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// seedStore sets up a store with one declared object, one stray object,
// one archive object and a published manifest.
func seedStore(t *testing.T) (objectstore.Store, objectstore.Keys) {
	t.Helper()
	store := objectstore.NewMemoryStore()
	keys := objectstore.DefaultKeys()
	ctx := context.Background()

	declared := keys.SelectionKey
	stray := keys.MutablePrefix + "orphan_tmp.json"
	archived := keys.SnapshotKey("2026-02-27")

	for _, k := range []string{declared, stray, archived} {
		if err := store.Put(ctx, k, []byte("body")); err != nil {
			t.Fatalf("Put %q: %v", k, err)
		}
	}

	b := NewBuilder().WithClock(fixedClock())
	b.Add(declared, []byte("body"))
	if err := Publish(ctx, store, keys, b.Build()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return store, keys
}

func TestBuildPlanExcludesManifestAndArchive(t *testing.T) {
	store, keys := seedStore(t)
	r := NewReconciler(store, keys, zerolog.Nop())

	plan, err := r.BuildPlan(context.Background())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	want := keys.MutablePrefix + "orphan_tmp.json"
	if len(plan.ToDelete) != 1 || plan.ToDelete[0] != want {
		t.Fatalf("plan = %v, want exactly [%s]", plan.ToDelete, want)
	}
}

func TestBuildPlanDoesNotMutate(t *testing.T) {
	store, keys := seedStore(t)
	r := NewReconciler(store, keys, zerolog.Nop())

	before, err := store.List(context.Background(), keys.MutablePrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := r.BuildPlan(context.Background()); err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	after, err := store.List(context.Background(), keys.MutablePrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("planning changed the store: %d -> %d objects", len(before), len(after))
	}
}

func TestApplyDeletesOnlyPlanned(t *testing.T) {
	store, keys := seedStore(t)
	r := NewReconciler(store, keys, zerolog.Nop())
	ctx := context.Background()

	plan, err := r.BuildPlan(ctx)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if err := r.Apply(ctx, plan); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := store.Head(ctx, keys.MutablePrefix+"orphan_tmp.json"); !errors.Is(err, objectstore.ErrNotFound) {
		t.Fatalf("stray object survived apply: %v", err)
	}
	for _, k := range []string{keys.SelectionKey, keys.ManifestKey, keys.SnapshotKey("2026-02-27")} {
		if _, err := store.Head(ctx, k); err != nil {
			t.Fatalf("apply deleted protected key %q: %v", k, err)
		}
	}
}

func TestBuildPlanMissingManifestFails(t *testing.T) {
	store := objectstore.NewMemoryStore()
	r := NewReconciler(store, objectstore.DefaultKeys(), zerolog.Nop())

	if _, err := r.BuildPlan(context.Background()); err == nil {
		t.Fatal("expected error when manifest is absent")
	}
}
