package marketdata

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Fetcher defaults.
const (
	DefaultWorkers     = 8
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultUnitTimeout = 30 * time.Second
)

// Failure records one instrument that could not be fetched.
type Failure struct {
	InstrumentID string
	Err          error
}

// FetchOutcome reports one batch fetch: which instruments produced bars
// and which failed after retries. One bad instrument never sinks the
// batch; the caller decides what a tolerable failure share is.
type FetchOutcome struct {
	Bars     []*domain.PriceBar
	Fetched  []string
	Failures []Failure
}

// Fetcher downloads series for a whole universe through a bounded pool
// of workers, retrying transient provider failures per instrument.
type Fetcher struct {
	provider    Provider
	log         zerolog.Logger
	workers     int
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	unitTimeout time.Duration
}

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithMaxRetries sets retry attempts per instrument.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.retryDelay = d
	}
}

// WithUnitTimeout bounds a single fetch attempt.
func WithUnitTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.unitTimeout = d
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(provider Provider, log zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		provider:    provider,
		log:         log,
		workers:     DefaultWorkers,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		unitTimeout: DefaultUnitTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll downloads series for every instrument. Returns an error only
// when the context is cancelled; per-instrument failures land in the
// outcome instead.
func (f *Fetcher) FetchAll(ctx context.Context, instrumentIDs []string, period, interval string) (*FetchOutcome, error) {
	type unit struct {
		bars []*domain.PriceBar
		fail *Failure
	}

	jobs := make(chan string)
	results := make(chan unit)

	var wg sync.WaitGroup
	for w := 0; w < f.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				bars, err := f.fetchOne(ctx, id, period, interval)
				if err != nil {
					results <- unit{fail: &Failure{InstrumentID: id, Err: err}}
					continue
				}
				results <- unit{bars: bars}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range instrumentIDs {
			select {
			case <-ctx.Done():
				return
			case jobs <- id:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcome := &FetchOutcome{}
	for u := range results {
		if u.fail != nil {
			f.log.Warn().
				Str("instrument", u.fail.InstrumentID).
				Err(u.fail.Err).
				Msg("instrument fetch failed")
			outcome.Failures = append(outcome.Failures, *u.fail)
			continue
		}
		outcome.Bars = append(outcome.Bars, u.bars...)
		if len(u.bars) > 0 {
			outcome.Fetched = append(outcome.Fetched, u.bars[0].InstrumentID)
		}
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	sort.Strings(outcome.Fetched)
	sort.Slice(outcome.Failures, func(i, j int) bool {
		return outcome.Failures[i].InstrumentID < outcome.Failures[j].InstrumentID
	})
	f.log.Info().
		Int("fetched", len(outcome.Fetched)).
		Int("failed", len(outcome.Failures)).
		Int("bars", len(outcome.Bars)).
		Msg("universe fetch complete")
	return outcome, nil
}

// fetchOne retries transient failures with exponential backoff. Permanent
// failures return immediately.
func (f *Fetcher) fetchOne(ctx context.Context, instrumentID, period, interval string) ([]*domain.PriceBar, error) {
	delay := f.retryDelay
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		unitCtx, cancel := context.WithTimeout(ctx, f.unitTimeout)
		bars, err := f.provider.Fetch(unitCtx, instrumentID, period, interval)
		cancel()
		if err == nil {
			return bars, nil
		}
		if errors.Is(err, ErrPermanent) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
