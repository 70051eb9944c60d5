package schedule

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/calendar/stub"
	"github.com/mountaincenter/dash-plotly/internal/domain"
)

func window(mode domain.ExecutionMode, ref domain.Date) domain.ExecutionWindow {
	return domain.ExecutionWindow{ReferenceDate: ref, Mode: mode}
}

func TestGuardRefreshChecksReferenceDate(t *testing.T) {
	oracle := stub.NewOracle()
	g := NewGuard(oracle, nil, zerolog.Nop())

	d := g.Check(context.Background(), window(domain.ModeAfternoonRefresh, "2026-03-02"))
	if !d.Allow {
		t.Fatalf("expected allow: %+v", d)
	}
	if d.CheckedDate != "2026-03-02" {
		t.Fatalf("CheckedDate = %s, want the reference date itself", d.CheckedDate)
	}
}

func TestGuardRefreshDeniedOnHoliday(t *testing.T) {
	oracle := stub.NewOracle()
	oracle.SetHoliday("2026-03-02")
	g := NewGuard(oracle, nil, zerolog.Nop())

	d := g.Check(context.Background(), window(domain.ModeAfternoonRefresh, "2026-03-02"))
	if d.Allow {
		t.Fatal("refresh on a non-trading reference date must be denied")
	}
}

func TestGuardSelectChecksNextDayNeverOwn(t *testing.T) {
	oracle := stub.NewOracle()
	g := NewGuard(oracle, nil, zerolog.Nop())

	d := g.Check(context.Background(), window(domain.ModeEveningSelect, "2026-03-02"))
	if !d.Allow {
		t.Fatalf("expected allow: %+v", d)
	}
	if d.CheckedDate != "2026-03-03" {
		t.Fatalf("CheckedDate = %s, want the next day", d.CheckedDate)
	}
	for _, q := range oracle.Queries() {
		if q == "2026-03-02" {
			t.Fatal("evening select consulted the reference date itself")
		}
	}
}

// Friday is a trading day, Saturday is not. Selecting on Friday evening
// is wasted work; selecting on Thursday evening is fine.
func TestGuardWeekendScenario(t *testing.T) {
	oracle := stub.NewOracle()
	oracle.SetHoliday("2026-03-07") // Saturday
	g := NewGuard(oracle, nil, zerolog.Nop())
	ctx := context.Background()

	friday := g.Check(ctx, window(domain.ModeEveningSelect, "2026-03-06"))
	if friday.Allow {
		t.Fatal("Friday select must be denied: Saturday is not a trading day")
	}
	if friday.CheckedDate != "2026-03-07" {
		t.Fatalf("CheckedDate = %s, want Saturday", friday.CheckedDate)
	}

	thursday := g.Check(ctx, window(domain.ModeEveningSelect, "2026-03-05"))
	if !thursday.Allow {
		t.Fatalf("Thursday select should be allowed: %+v", thursday)
	}
}

func TestGuardFailsClosedWhenOracleUnavailable(t *testing.T) {
	oracle := stub.NewOracle()
	oracle.SetFail(true)
	g := NewGuard(oracle, nil, zerolog.Nop())

	d := g.Check(context.Background(), window(domain.ModeEveningSelect, "2026-03-02"))
	if d.Allow {
		t.Fatal("unreachable oracle must deny, never assume a trading day")
	}
	if !strings.Contains(d.Reason, "calendar unavailable") {
		t.Fatalf("Reason = %q, want calendar unavailability", d.Reason)
	}
}

func TestGuardSkipDates(t *testing.T) {
	oracle := stub.NewOracle()
	g := NewGuard(oracle, []domain.Date{"2026-12-31"}, zerolog.Nop())

	// The calendar would allow it; the configured skip date wins.
	d := g.Check(context.Background(), window(domain.ModeEveningSelect, "2026-12-30"))
	if d.Allow {
		t.Fatal("configured skip date must deny")
	}
	if len(oracle.Queries()) != 0 {
		t.Fatal("skip date denial should not consult the oracle")
	}
}

func TestGuardIdleDenied(t *testing.T) {
	g := NewGuard(stub.NewOracle(), nil, zerolog.Nop())
	if d := g.Check(context.Background(), window(domain.ModeIdle, "2026-03-02")); d.Allow {
		t.Fatal("idle mode has no work to allow")
	}
}
