// Command reconcile diffs the object store against the published
// manifest. The default run only prints the plan; deletions require the
// explicit -apply flag and are meant to be operator-invoked, never
// scheduled alongside automatic refresh cycles.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mountaincenter/dash-plotly/internal/config"
	"github.com/mountaincenter/dash-plotly/internal/logging"
	"github.com/mountaincenter/dash-plotly/internal/manifest"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
	"github.com/mountaincenter/dash-plotly/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	apply := flag.Bool("apply", false, "Delete orphan objects (default is dry-run)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store, err := objectstore.NewS3Store(ctx, cfg.ObjectStore.Bucket, cfg.ObjectStore.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to object store")
	}
	keys := objectstore.KeysFor(cfg.ObjectStore.MutablePrefix)

	metrics := observability.NewMetrics("")
	r := manifest.NewReconciler(store, keys, logger)

	plan, err := r.BuildPlan(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("build reconcile plan")
	}

	if len(plan.ToDelete) == 0 {
		fmt.Println("store matches manifest, nothing to delete")
		metrics.ObserveReconcile(0, 0)
		return
	}

	fmt.Printf("orphan objects (%d):\n", len(plan.ToDelete))
	for _, key := range plan.ToDelete {
		fmt.Printf("  %s\n", key)
	}

	if !*apply {
		fmt.Println("dry run: pass -apply to delete")
		metrics.ObserveReconcile(len(plan.ToDelete), 0)
		return
	}

	if err := r.Apply(ctx, plan); err != nil {
		logger.Fatal().Err(err).Msg("apply reconcile plan")
	}
	metrics.ObserveReconcile(len(plan.ToDelete), len(plan.ToDelete))
	fmt.Printf("deleted %d objects\n", len(plan.ToDelete))
}
