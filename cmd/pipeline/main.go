// Command pipeline executes one scheduled invocation: it selects the
// execution mode from the clock, asks the window guard for permission and
// runs the step sequence. Exit code 1 is reserved for aborted runs;
// denials and partial runs exit 0 so the scheduler does not retry work
// that was correctly refused or already applied.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/calendar"
	"github.com/mountaincenter/dash-plotly/internal/config"
	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/logging"
	"github.com/mountaincenter/dash-plotly/internal/marketdata"
	"github.com/mountaincenter/dash-plotly/internal/merge"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
	"github.com/mountaincenter/dash-plotly/internal/observability"
	"github.com/mountaincenter/dash-plotly/internal/pipeline"
	"github.com/mountaincenter/dash-plotly/internal/reporting"
	"github.com/mountaincenter/dash-plotly/internal/schedule"
	"github.com/mountaincenter/dash-plotly/internal/scoring"
	chstore "github.com/mountaincenter/dash-plotly/internal/storage/clickhouse"
	"github.com/mountaincenter/dash-plotly/internal/storage/migrations"
	pgstore "github.com/mountaincenter/dash-plotly/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	forceMode := flag.String("force-mode", "", "Force execution mode: AFTERNOON_REFRESH or EVENING_SELECT")
	refDate := flag.String("reference-date", "", "Override reference date (YYYY-MM-DD), requires -force-mode")
	skipGuard := flag.Bool("skip-guard", false, "Bypass the window guard (operator override)")
	printReport := flag.Bool("print-report", false, "Print the run report as Markdown to stdout")
	migrate := flag.Bool("migrate", false, "Run database migrations before the pipeline")
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
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	override := domain.ExecutionMode(*forceMode)
	if *forceMode != "" && override != domain.ModeAfternoonRefresh && override != domain.ModeEveningSelect {
		logger.Fatal().Str("mode", *forceMode).Msg("invalid -force-mode")
	}
	if *refDate != "" && *forceMode == "" {
		logger.Fatal().Msg("-reference-date requires -force-mode")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve timezone")
	}

	window := schedule.SelectMode(time.Now(), override, schedule.Sessions{
		Location:     loc,
		RefreshStart: cfg.Schedule.RefreshStart,
		RefreshEnd:   cfg.Schedule.RefreshEnd,
		SelectStart:  cfg.Schedule.SelectStart,
		SelectEnd:    cfg.Schedule.SelectEnd,
	})
	if *refDate != "" {
		date, err := domain.ParseDate(*refDate)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -reference-date")
		}
		window.ReferenceDate = date
	}

	if window.Mode == domain.ModeIdle {
		logger.Info().Str("referenceDate", window.ReferenceDate.String()).
			Msg("outside execution windows, nothing to do")
		return
	}

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	var conn *chstore.Conn
	if *migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrations")
		}
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations")
		}
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
	}
	defer conn.Close()

	store, err := objectstore.NewS3Store(ctx, cfg.ObjectStore.Bucket, cfg.ObjectStore.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to object store")
	}
	keys := objectstore.KeysFor(cfg.ObjectStore.MutablePrefix)

	oracle := calendar.NewHTTPClient(cfg.Calendar.Endpoint, cfg.Calendar.Token,
		calendar.WithTimeout(cfg.Calendar.Timeout))

	runner := pipeline.NewRunner(pipeline.Options{
		Guard:    schedule.NewGuard(oracle, cfg.Schedule.SkipDates, logger),
		Metadata: marketdata.NewMetaClient(cfg.MarketData.MetaEndpoint),
		Fetcher: marketdata.NewFetcher(
			marketdata.NewHTTPProvider(cfg.MarketData.Endpoint),
			logger,
			marketdata.WithWorkers(cfg.MarketData.Workers),
			marketdata.WithMaxRetries(cfg.MarketData.MaxRetries),
			marketdata.WithRetryDelay(cfg.MarketData.RetryDelay),
			marketdata.WithUnitTimeout(cfg.MarketData.UnitTimeout),
		),
		Prices:      chstore.NewPriceSeriesStore(conn),
		Ranker:      scoring.NewHTTPClient(cfg.Scoring.Endpoint, scoring.WithTimeout(cfg.Scoring.Timeout)),
		Merger:      merge.NewEngine(cfg.ActionBands(), logger),
		Recs:        pgstore.NewRecommendationStore(pool),
		Archive:     pgstore.NewArchiveStore(pool),
		ObjectStore: store,
		Keys:        keys,
		Logger:      logger,
		Observer:    metrics,

		FetchPeriod:   cfg.MarketData.Period,
		FetchInterval: cfg.MarketData.Interval,
		SkipGuard:     *skipGuard,
	})

	report, err := runner.Run(ctx, window)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline run cancelled")
	}
	metrics.ObserveRun(report)

	if *printReport {
		fmt.Print(reporting.RenderMarkdown(report))
	}

	// A denial is a correct outcome, not a failure the scheduler should
	// retry. Only an aborted run that was supposed to do work exits 1.
	if report.Status == domain.RunStatusAborted && report.DenyReason == "" {
		os.Exit(1)
	}
}
