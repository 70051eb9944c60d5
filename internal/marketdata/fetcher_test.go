package marketdata_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/marketdata"
	"github.com/mountaincenter/dash-plotly/internal/marketdata/stub"
)

func barsFor(id string) []*domain.PriceBar {
	return []*domain.PriceBar{
		{InstrumentID: id, Date: domain.Date("2026-03-02"), Open: 100, High: 110, Low: 95, Close: 105, Volume: 10000},
		{InstrumentID: id, Date: domain.Date("2026-03-03"), Open: 105, High: 112, Low: 101, Close: 108, Volume: 9000},
	}
}

func newFetcher(p marketdata.Provider) *marketdata.Fetcher {
	return marketdata.NewFetcher(p, zerolog.Nop(),
		marketdata.WithWorkers(4),
		marketdata.WithMaxRetries(2),
		marketdata.WithRetryDelay(time.Millisecond),
	)
}

func TestFetchAllSuccess(t *testing.T) {
	p := stub.NewProvider()
	ids := []string{"7203", "6758", "9984"}
	for _, id := range ids {
		p.SetSeries(id, barsFor(id))
	}

	out, err := newFetcher(p).FetchAll(context.Background(), ids, "3mo", "1d")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(out.Failures) != 0 {
		t.Fatalf("failures = %v, want none", out.Failures)
	}
	if len(out.Fetched) != 3 || len(out.Bars) != 6 {
		t.Fatalf("fetched=%d bars=%d, want 3/6", len(out.Fetched), len(out.Bars))
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	p := stub.NewProvider()
	var ids []string
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("%04d", i)
		ids = append(ids, id)
		p.SetSeries(id, barsFor(id))
	}
	// Three instruments stay broken through all retries.
	for _, bad := range []string{"0007", "0021", "0042"} {
		p.SetError(bad, fmt.Errorf("%w: provider down", marketdata.ErrTransient))
	}

	out, err := newFetcher(p).FetchAll(context.Background(), ids, "3mo", "1d")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(out.Failures) != 3 {
		t.Fatalf("got %d failures, want 3: %v", len(out.Failures), out.Failures)
	}
	if len(out.Fetched) != 47 {
		t.Fatalf("got %d fetched, want 47", len(out.Fetched))
	}
	for _, f := range out.Failures {
		if !errors.Is(f.Err, marketdata.ErrTransient) {
			t.Fatalf("failure %s lost its class: %v", f.InstrumentID, f.Err)
		}
	}
}

func TestFetchOneRetriesTransient(t *testing.T) {
	p := stub.NewProvider()
	p.SetSeries("7203", barsFor("7203"))
	p.FailFirst("7203", 2)

	out, err := newFetcher(p).FetchAll(context.Background(), []string{"7203"}, "3mo", "1d")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(out.Failures) != 0 {
		t.Fatalf("transient failures should be retried away: %v", out.Failures)
	}
	if got := p.Calls("7203"); got != 3 {
		t.Fatalf("calls = %d, want 3 (2 failures + success)", got)
	}
}

func TestFetchOnePermanentNotRetried(t *testing.T) {
	p := stub.NewProvider()
	p.SetError("XXXX", fmt.Errorf("%w: no such symbol", marketdata.ErrPermanent))

	out, err := newFetcher(p).FetchAll(context.Background(), []string{"XXXX"}, "3mo", "1d")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(out.Failures) != 1 || !errors.Is(out.Failures[0].Err, marketdata.ErrPermanent) {
		t.Fatalf("failures = %v, want one permanent", out.Failures)
	}
	if got := p.Calls("XXXX"); got != 1 {
		t.Fatalf("calls = %d, want 1 (no retries on permanent)", got)
	}
}

func TestFetchAllCancelled(t *testing.T) {
	p := stub.NewProvider()
	p.SetSeries("7203", barsFor("7203"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(p).FetchAll(ctx, []string{"7203"}, "3mo", "1d")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
