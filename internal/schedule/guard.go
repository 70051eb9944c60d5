package schedule

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mountaincenter/dash-plotly/internal/calendar"
	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Decision is the guard's verdict for one invocation.
type Decision struct {
	Allow       bool
	Reason      string      // set when denied
	CheckedDate domain.Date // the date the oracle was asked about
}

// Guard decides whether the oracle permits work for the selected mode.
//
// The date checked depends on the mode's consumption horizon, not on
// "today" uniformly: AFTERNOON_REFRESH is meaningless on a non-trading
// reference date, while the EVENING_SELECT artifact is consumed on the
// next session, so it checks referenceDate+1.
type Guard struct {
	oracle    calendar.Oracle
	skipDates map[domain.Date]struct{}
	log       zerolog.Logger
}

// NewGuard creates a guard. skipDates lists irregular session dates that
// are denied even when the calendar marks them tradable.
func NewGuard(oracle calendar.Oracle, skipDates []domain.Date, log zerolog.Logger) *Guard {
	set := make(map[domain.Date]struct{}, len(skipDates))
	for _, d := range skipDates {
		set[d] = struct{}{}
	}
	return &Guard{oracle: oracle, skipDates: set, log: log}
}

// Check returns the guard's verdict. An unreachable oracle denies
// (fail-closed): the guard never assumes a date is a trading day.
func (g *Guard) Check(ctx context.Context, win domain.ExecutionWindow) Decision {
	var checked domain.Date

	switch win.Mode {
	case domain.ModeAfternoonRefresh:
		checked = win.ReferenceDate
	case domain.ModeEveningSelect:
		// Tonight's artifact is consumed on the next session.
		checked = win.ReferenceDate.AddDays(1)
	case domain.ModeIdle:
		return Decision{Allow: false, Reason: "mode is idle"}
	default:
		return Decision{Allow: false, Reason: fmt.Sprintf("unknown mode %q", win.Mode)}
	}

	if _, skip := g.skipDates[checked]; skip {
		g.log.Info().Str("date", checked.String()).Msg("guard deny: configured skip date")
		return Decision{
			Allow:       false,
			Reason:      fmt.Sprintf("%s is a configured skip date", checked),
			CheckedDate: checked,
		}
	}

	rec, err := g.oracle.Query(ctx, checked)
	if err != nil {
		// Fail closed: unreachable calendar is never "is a trading day".
		g.log.Warn().Err(err).Str("date", checked.String()).Msg("guard deny: calendar unavailable")
		return Decision{
			Allow:       false,
			Reason:      fmt.Sprintf("calendar unavailable for %s: %v", checked, err),
			CheckedDate: checked,
		}
	}

	if !rec.IsTradingDay {
		return Decision{
			Allow:       false,
			Reason:      fmt.Sprintf("%s is not a trading day (class %s)", checked, rec.HolidayClass),
			CheckedDate: checked,
		}
	}

	return Decision{Allow: true, CheckedDate: checked}
}
