// Command merge applies a refinement pass to an existing selection date:
// refined scores supersede the base pass, reversals of high-confidence
// calls are flagged, and the live selection artifact is rewritten to the
// new final values.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/backup"
	"github.com/mountaincenter/dash-plotly/internal/config"
	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/logging"
	"github.com/mountaincenter/dash-plotly/internal/merge"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
	"github.com/mountaincenter/dash-plotly/internal/pipeline"
	pgstore "github.com/mountaincenter/dash-plotly/internal/storage/postgres"
)

// refinementPayload is the wire format of one refinement item.
type refinementPayload struct {
	InstrumentID string  `json:"instrumentId"`
	Score        float64 `json:"score"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dateFlag := flag.String("date", "", "Selection date to refine (YYYY-MM-DD, required)")
	input := flag.String("refinements", "-", "Refinement JSON file, or - for stdin")
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

	date, err := domain.ParseDate(*dateFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("-date is required as YYYY-MM-DD")
	}

	refinements, err := readRefinements(*input)
	if err != nil {
		logger.Fatal().Err(err).Msg("read refinements")
	}
	if len(refinements) == 0 {
		logger.Info().Msg("no refinements to apply")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	store, err := objectstore.NewS3Store(ctx, cfg.ObjectStore.Bucket, cfg.ObjectStore.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to object store")
	}
	keys := objectstore.KeysFor(cfg.ObjectStore.MutablePrefix)

	recs := pgstore.NewRecommendationStore(pool)
	records, err := recs.GetByDate(ctx, date)
	if err != nil {
		logger.Fatal().Err(err).Str("date", date.String()).Msg("load recommendations")
	}
	if len(records) == 0 {
		logger.Fatal().Str("date", date.String()).Msg("no base records for date")
	}

	byID := make(map[string]*domain.RecommendationRecord, len(records))
	for _, rec := range records {
		byID[rec.InstrumentID] = rec
	}

	engine := merge.NewEngine(cfg.ActionBands(), logger)
	applied, flagged := 0, 0
	for _, ref := range refinements {
		rec, ok := byID[ref.InstrumentID]
		if !ok {
			logger.Warn().Str("instrument", ref.InstrumentID).Msg("refinement for unknown instrument, dropping")
			continue
		}
		engine.ApplyRefinement(rec, ref)
		if err := recs.Put(ctx, date, rec); err != nil {
			logger.Fatal().Err(err).Str("instrument", rec.InstrumentID).Msg("store refined record")
		}
		applied++
		if rec.OverrideFlag {
			flagged++
		}
	}

	if err := rewriteSelection(ctx, store, keys, pool, date, records, logger); err != nil {
		logger.Fatal().Err(err).Msg("rewrite selection artifact")
	}

	logger.Info().
		Str("date", date.String()).
		Int("applied", applied).
		Int("flagged", flagged).
		Msg("refinement pass complete")
}

func readRefinements(path string) ([]domain.Refinement, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var payload []refinementPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode refinements: %w", err)
	}

	out := make([]domain.Refinement, 0, len(payload))
	for _, p := range payload {
		out = append(out, domain.Refinement{InstrumentID: p.InstrumentID, Score: p.Score})
	}
	return out, nil
}

// rewriteSelection updates the live artifact to the refined finals. The
// artifact overwrite still goes through backup verification, even though
// the refined date is the artifact's own: the evening run archived it, so
// a passing check is the expected state and a failing one means the store
// is in a shape that should be looked at before any rewrite.
func rewriteSelection(
	ctx context.Context,
	store objectstore.Store,
	keys objectstore.Keys,
	pool *pgstore.Pool,
	date domain.Date,
	records []*domain.RecommendationRecord,
	logger zerolog.Logger,
) error {
	writer := pipeline.NewSelectionWriter(store, keys)
	current, err := writer.Current(ctx)
	if err != nil {
		return err
	}
	if current == nil || current.SelectionDate != date {
		logger.Info().Str("date", date.String()).Msg("live artifact is not for this date, store-only refinement")
		return nil
	}

	verifier := backup.NewVerifier(store, pgstore.NewArchiveStore(pool), keys, logger)
	proof, err := verifier.Verify(ctx, current.SelectionDate)
	if err != nil {
		return err
	}

	priorPicks := make(map[string]pipeline.Pick, len(current.Picks))
	for _, p := range current.Picks {
		priorPicks[p.InstrumentID] = p
	}

	next := &pipeline.Selection{
		SelectionDate: date,
		GeneratedAt:   current.GeneratedAt,
	}
	for _, rec := range records {
		prior := priorPicks[rec.InstrumentID]
		next.Picks = append(next.Picks, pipeline.Pick{
			InstrumentID: rec.InstrumentID,
			Score:        rec.FinalScore,
			Action:       rec.FinalAction,
			Confidence:   rec.Confidence,
			Category:     prior.Category,
			Rationale:    prior.Rationale,
		})
	}

	_, err = writer.Replace(ctx, proof, current, next)
	return err
}
