package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/objectstore"
)

// Plan lists the objects a reconciliation run would delete: everything
// under the mutable prefix that the manifest does not declare, minus the
// manifest object itself and the archive prefix.
type Plan struct {
	ToDelete []string
}

// Reconciler drifts the store back to the manifest's declared set.
// Destructive only in apply mode; planning never mutates anything.
type Reconciler struct {
	store objectstore.Store
	keys  objectstore.Keys
	log   zerolog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store objectstore.Store, keys objectstore.Keys, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, keys: keys, log: log}
}

// BuildPlan loads the manifest, lists the mutable prefix and diffs the
// two. A missing manifest is an error: without a declared set every
// object would look like garbage.
func (r *Reconciler) BuildPlan(ctx context.Context) (*Plan, error) {
	m, err := Load(ctx, r.store, r.keys)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	desired := make(map[string]struct{}, len(m.Items))
	for _, it := range m.Items {
		desired[it.Key] = struct{}{}
	}

	actual, err := r.store.List(ctx, r.keys.MutablePrefix)
	if err != nil {
		return nil, fmt.Errorf("reconcile list %q: %w", r.keys.MutablePrefix, err)
	}

	plan := &Plan{}
	for _, obj := range actual {
		if obj.Key == r.keys.ManifestKey {
			continue
		}
		if strings.HasPrefix(obj.Key, r.keys.ArchivePrefix) {
			continue
		}
		if _, ok := desired[obj.Key]; ok {
			continue
		}
		plan.ToDelete = append(plan.ToDelete, obj.Key)
	}

	r.log.Info().
		Int("actual", len(actual)).
		Int("desired", len(m.Items)).
		Int("toDelete", len(plan.ToDelete)).
		Msg("reconcile plan built")
	return plan, nil
}

// Apply executes the plan. Deletes proceed best-effort in key order;
// the first failure aborts with the keys already removed staying removed.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) error {
	for _, key := range plan.ToDelete {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("reconcile delete %q: %w", key, err)
		}
		r.log.Info().Str("key", key).Msg("reconcile: deleted stray object")
	}
	return nil
}
