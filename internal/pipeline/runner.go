// Package pipeline sequences one scheduled invocation: window check,
// data refresh, selection, archival and manifest publication, with
// per-step failure isolation. Every read-only step runs before the first
// destructive write, so aborting the destructive tail never strands a
// half-mutated store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/archive"
	"github.com/mountaincenter/dash-plotly/internal/backup"
	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/manifest"
	"github.com/mountaincenter/dash-plotly/internal/marketdata"
	"github.com/mountaincenter/dash-plotly/internal/merge"
	"github.com/mountaincenter/dash-plotly/internal/objectstore"
	"github.com/mountaincenter/dash-plotly/internal/schedule"
	"github.com/mountaincenter/dash-plotly/internal/scoring"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

// Default fetch parameters for the daily series.
const (
	DefaultFetchPeriod   = "3mo"
	DefaultFetchInterval = "1d"
)

// Observer receives per-step counts for metrics export.
type Observer interface {
	ObserveFetch(fetched, failed, bars int)
	ObserveArchive(appended, skipped int)
}

// Options wires the runner's collaborators.
type Options struct {
	Guard       *schedule.Guard
	Metadata    MetadataSource
	Fetcher     *marketdata.Fetcher
	Prices      storage.PriceSeriesStore
	Ranker      scoring.Ranker
	Merger      *merge.Engine
	Recs        storage.RecommendationStore
	Archive     storage.ArchiveStore
	ObjectStore objectstore.Store
	Keys        objectstore.Keys
	Logger      zerolog.Logger

	// Observer is optional; nil disables step metrics.
	Observer Observer

	// FetchPeriod and FetchInterval default when empty.
	FetchPeriod   string
	FetchInterval string

	// SkipGuard bypasses the window guard. Operator override only; the
	// runner still refuses to do anything in idle mode.
	SkipGuard bool
}

// Runner executes one invocation for a selected execution window.
type Runner struct {
	guard     *schedule.Guard
	metadata  *metadataLoader
	fetcher   *marketdata.Fetcher
	prices    storage.PriceSeriesStore
	ranker    scoring.Ranker
	merger    *merge.Engine
	recs      storage.RecommendationStore
	archiver  *archive.Writer
	verifier  *backup.Verifier
	selection *SelectionWriter
	store     objectstore.Store
	keys      objectstore.Keys
	log       zerolog.Logger
	clock     func() time.Time

	period    string
	interval  string
	skipGuard bool
	observer  Observer
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	period := opts.FetchPeriod
	if period == "" {
		period = DefaultFetchPeriod
	}
	interval := opts.FetchInterval
	if interval == "" {
		interval = DefaultFetchInterval
	}
	return &Runner{
		guard: opts.Guard,
		metadata: &metadataLoader{
			source: opts.Metadata,
			store:  opts.ObjectStore,
			keys:   opts.Keys,
			log:    opts.Logger,
		},
		fetcher:   opts.Fetcher,
		prices:    opts.Prices,
		ranker:    opts.Ranker,
		merger:    opts.Merger,
		recs:      opts.Recs,
		archiver:  archive.NewWriter(opts.Archive, opts.Logger),
		verifier:  backup.NewVerifier(opts.ObjectStore, opts.Archive, opts.Keys, opts.Logger),
		selection: NewSelectionWriter(opts.ObjectStore, opts.Keys),
		store:     opts.ObjectStore,
		keys:      opts.Keys,
		log:       opts.Logger,
		clock:     func() time.Time { return time.Now().UTC() },
		period:    period,
		interval:  interval,
		skipGuard: opts.SkipGuard,
		observer:  opts.Observer,
	}
}

// WithClock sets a custom clock for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// run carries the mutable state of one invocation.
type run struct {
	report   *domain.RunReport
	window   domain.ExecutionWindow
	universe *domain.MetaSet
	metaBody []byte
	outcome  *marketdata.FetchOutcome
	proof    *backup.Proof
	prior    *Selection
	next     *Selection
	selBody  []byte
	snapKey  string
	snapBody []byte
}

// Run executes the invocation for the given window. Denials and aborted
// destructive tails come back as ABORTED reports, not errors; the error
// return is for context cancellation only.
func (r *Runner) Run(ctx context.Context, window domain.ExecutionWindow) (*domain.RunReport, error) {
	st := &run{
		window: window,
		report: &domain.RunReport{
			Mode:          window.Mode,
			ReferenceDate: window.ReferenceDate,
			Status:        domain.RunStatusSuccess,
			StartedAt:     r.clock(),
		},
	}

	if window.Mode == domain.ModeIdle {
		st.report.Status = domain.RunStatusAborted
		st.report.DenyReason = "outside execution windows"
		r.skipRemaining(st, StepsFor(window.Mode))
		st.report.FinishedAt = r.clock()
		return st.report, nil
	}

	steps := StepsFor(window.Mode)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return st.report, err
		}

		res := r.execute(ctx, step, st)
		st.report.Steps = append(st.report.Steps, res)

		switch res.Status {
		case domain.StepStatusFailed:
			// A failed step aborts everything after it. Side effects of
			// already-completed steps stand.
			st.report.Status = domain.RunStatusAborted
			r.skipRemaining(st, steps[i+1:])
			st.report.FinishedAt = r.clock()
			r.logReport(st.report)
			return st.report, nil
		case domain.StepStatusPartial:
			st.report.Status = domain.RunStatusPartial
		}
	}

	st.report.FinishedAt = r.clock()
	r.logReport(st.report)
	return st.report, nil
}

// StepsFor returns the ordered step names for a mode. The afternoon
// refresh has no destructive tail: it never touches the selection
// artifact or the archive.
func StepsFor(mode domain.ExecutionMode) []string {
	switch mode {
	case domain.ModeEveningSelect:
		return []string{
			domain.StepVerifyWindow,
			domain.StepFetchMetadata,
			domain.StepFetchPrices,
			domain.StepBackupVerify,
			domain.StepScoreSelect,
			domain.StepArchiveWrite,
			domain.StepPublishManifest,
		}
	default:
		return []string{
			domain.StepVerifyWindow,
			domain.StepFetchMetadata,
			domain.StepFetchPrices,
			domain.StepPublishManifest,
		}
	}
}

func (r *Runner) execute(ctx context.Context, step string, st *run) domain.StepResult {
	started := r.clock()
	res := domain.StepResult{Name: step, Status: domain.StepStatusOK}

	switch step {
	case domain.StepVerifyWindow:
		r.verifyWindow(ctx, st, &res)
	case domain.StepFetchMetadata:
		r.fetchMetadata(ctx, st, &res)
	case domain.StepFetchPrices:
		r.fetchPrices(ctx, st, &res)
	case domain.StepBackupVerify:
		r.backupVerify(ctx, st, &res)
	case domain.StepScoreSelect:
		r.scoreSelect(ctx, st, &res)
	case domain.StepArchiveWrite:
		r.archiveWrite(ctx, st, &res)
	case domain.StepPublishManifest:
		r.publishManifest(ctx, st, &res)
	default:
		res.Status = domain.StepStatusFailed
		res.Err = fmt.Sprintf("unknown step %q", step)
	}

	res.Duration = r.clock().Sub(started)
	r.log.Info().
		Str("step", step).
		Str("status", string(res.Status)).
		Str("detail", res.Detail).
		Dur("took", res.Duration).
		Msg("pipeline step")
	return res
}

func (r *Runner) verifyWindow(ctx context.Context, st *run, res *domain.StepResult) {
	if r.skipGuard {
		r.log.Warn().Str("mode", string(st.window.Mode)).Msg("window guard bypassed by operator override")
		res.Detail = "guard bypassed"
		return
	}
	decision := r.guard.Check(ctx, st.window)
	if !decision.Allow {
		st.report.DenyReason = decision.Reason
		res.Status = domain.StepStatusFailed
		res.Err = decision.Reason
		res.Detail = fmt.Sprintf("checked %s", decision.CheckedDate)
		return
	}
	res.Detail = fmt.Sprintf("%s allowed, checked %s", st.window.Mode, decision.CheckedDate)
}

func (r *Runner) fetchMetadata(ctx context.Context, st *run, res *domain.StepResult) {
	meta, body, degraded, err := r.metadata.load(ctx)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	st.universe = meta
	st.metaBody = body
	if degraded {
		res.Status = domain.StepStatusDegraded
		if len(meta.Instruments) == 0 {
			res.Detail = "no fresh or cached universe, continuing with empty set"
		} else {
			res.Detail = fmt.Sprintf("last-known-good universe, %d instruments", len(meta.Instruments))
		}
		return
	}
	res.Detail = fmt.Sprintf("%d instruments", len(meta.Instruments))
}

func (r *Runner) fetchPrices(ctx context.Context, st *run, res *domain.StepResult) {
	if len(st.universe.Instruments) == 0 {
		st.outcome = &marketdata.FetchOutcome{}
		res.Detail = "empty universe, nothing to fetch"
		return
	}

	outcome, err := r.fetcher.FetchAll(ctx, st.universe.IDs(), r.period, r.interval)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	st.outcome = outcome
	if r.observer != nil {
		r.observer.ObserveFetch(len(outcome.Fetched), len(outcome.Failures), len(outcome.Bars))
	}

	// Only fetched instruments are written; failed instruments keep
	// their previously stored bars untouched.
	if len(outcome.Bars) > 0 {
		if err := r.prices.InsertBulk(ctx, outcome.Bars); err != nil {
			res.Status = domain.StepStatusFailed
			res.Err = err.Error()
			return
		}
	}

	switch {
	case len(outcome.Fetched) == 0:
		res.Status = domain.StepStatusFailed
		res.Err = fmt.Sprintf("all %d instruments failed", len(outcome.Failures))
	case len(outcome.Failures) > 0:
		res.Status = domain.StepStatusPartial
		res.Detail = fmt.Sprintf("%d updated, %d failed", len(outcome.Fetched), len(outcome.Failures))
	default:
		res.Detail = fmt.Sprintf("%d updated, %d bars", len(outcome.Fetched), len(outcome.Bars))
	}
}

func (r *Runner) backupVerify(ctx context.Context, st *run, res *domain.StepResult) {
	prior, err := r.selection.Current(ctx)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	st.prior = prior

	if prior == nil {
		// First ever run: nothing would be destroyed.
		st.proof = backup.VacuousProof(st.window.ReferenceDate)
		res.Detail = "no prior artifact, nothing to protect"
		return
	}

	proof, err := r.verifier.Verify(ctx, prior.SelectionDate)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		res.Detail = fmt.Sprintf("prior artifact %s", prior.SelectionDate)
		return
	}
	st.proof = proof
	res.Detail = fmt.Sprintf("prior artifact %s verified", prior.SelectionDate)
}

func (r *Runner) scoreSelect(ctx context.Context, st *run, res *domain.StepResult) {
	candidates, err := r.ranker.Rank(ctx, scoring.Request{
		SelectionDate: st.selectionDate(),
		Instruments:   st.universe.Instruments,
		Bars:          st.outcome.Bars,
	})
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}

	records := r.merger.MergeAll(candidates, nil)
	date := st.selectionDate()
	for _, rec := range records {
		if err := r.recs.Put(ctx, date, rec); err != nil {
			res.Status = domain.StepStatusFailed
			res.Err = err.Error()
			return
		}
	}

	byID := make(map[string]domain.RankedCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.InstrumentID] = c
	}
	next := &Selection{
		SelectionDate: date,
		GeneratedAt:   r.clock(),
	}
	for _, rec := range records {
		c := byID[rec.InstrumentID]
		next.Picks = append(next.Picks, Pick{
			InstrumentID: rec.InstrumentID,
			Score:        rec.FinalScore,
			Action:       rec.FinalAction,
			Confidence:   rec.Confidence,
			Category:     c.Category,
			Rationale:    c.Rationale,
		})
	}
	st.next = next
	res.Detail = fmt.Sprintf("%d picks for %s", len(next.Picks), date)
}

// archiveWrite makes the new selection durable before replacing the live
// artifact: snapshot object and archive rows first, then the guarded
// overwrite. A crash between the two leaves the old artifact intact and
// the new one already archived, which a retry resolves idempotently.
func (r *Runner) archiveWrite(ctx context.Context, st *run, res *domain.StepResult) {
	snapKey, snapBody, err := r.selection.WriteSnapshot(ctx, st.next)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	st.snapKey = snapKey
	st.snapBody = snapBody

	entries := make([]*domain.ArchiveEntry, 0, len(st.next.Picks))
	for _, p := range st.next.Picks {
		entries = append(entries, &domain.ArchiveEntry{
			SelectionDate: st.next.SelectionDate,
			InstrumentID:  p.InstrumentID,
			Metrics: domain.MetricsSnapshot{
				Score:      p.Score,
				Action:     p.Action,
				Confidence: p.Confidence,
				Category:   p.Category,
				Rationale:  p.Rationale,
			},
		})
	}
	result, err := r.archiver.WriteBatch(ctx, entries)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	if r.observer != nil {
		r.observer.ObserveArchive(result.Appended, result.Skipped)
	}

	body, err := r.selection.Replace(ctx, st.proof, st.prior, st.next)
	if err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	st.selBody = body
	res.Detail = fmt.Sprintf("archived %d new, %d existing; artifact replaced", result.Appended, result.Skipped)
}

func (r *Runner) publishManifest(ctx context.Context, st *run, res *domain.StepResult) {
	b := manifest.NewBuilder().WithClock(r.clock)
	if st.metaBody != nil {
		b.Add(r.keys.MetaKey, st.metaBody)
	}
	if st.selBody != nil {
		b.Add(r.keys.SelectionKey, st.selBody)
	} else if prior, err := r.store.Get(ctx, r.keys.SelectionKey); err == nil {
		// Refresh runs keep the existing artifact declared.
		b.Add(r.keys.SelectionKey, prior)
	}
	if st.snapBody != nil {
		b.Add(st.snapKey, st.snapBody)
	}

	m := b.Build()
	if err := manifest.Publish(ctx, r.store, r.keys, m); err != nil {
		res.Status = domain.StepStatusFailed
		res.Err = err.Error()
		return
	}
	res.Detail = fmt.Sprintf("%d items declared", len(m.Items))
}

// selectionDate is the date the evening artifact will be consumed on:
// the next session after the reference date.
func (st *run) selectionDate() domain.Date {
	return st.window.ReferenceDate.AddDays(1)
}

func (r *Runner) skipRemaining(st *run, steps []string) {
	for _, step := range steps {
		st.report.Steps = append(st.report.Steps, domain.StepResult{
			Name:   step,
			Status: domain.StepStatusSkipped,
		})
	}
}

func (r *Runner) logReport(rep *domain.RunReport) {
	ev := r.log.Info()
	if rep.Status != domain.RunStatusSuccess {
		ev = r.log.Warn()
	}
	ev.Str("mode", string(rep.Mode)).
		Str("referenceDate", rep.ReferenceDate.String()).
		Str("status", string(rep.Status)).
		Str("denyReason", rep.DenyReason).
		Int("steps", len(rep.Steps)).
		Msg("pipeline run finished")
}
