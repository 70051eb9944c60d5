// Package schedule decides whether a scheduled invocation is allowed to do
// work: a pure mode selector over wall-clock time plus a window guard that
// consults the trading calendar.
package schedule

import (
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Sessions configures the two daily execution windows as minute offsets
// from midnight in Location. An end offset may exceed 24h for windows that
// cross midnight; the reference date is always the day the window started.
type Sessions struct {
	Location     *time.Location
	RefreshStart time.Duration // e.g. 13h
	RefreshEnd   time.Duration // e.g. 16h
	SelectStart  time.Duration // e.g. 22h
	SelectEnd    time.Duration // e.g. 26h (02:00 next day)
}

// DefaultSessions returns the production session boundaries in the given
// location: afternoon refresh 13:00-16:00, evening selection 22:00-26:00.
func DefaultSessions(loc *time.Location) Sessions {
	return Sessions{
		Location:     loc,
		RefreshStart: 13 * time.Hour,
		RefreshEnd:   16 * time.Hour,
		SelectStart:  22 * time.Hour,
		SelectEnd:    26 * time.Hour,
	}
}

// SelectMode maps an instant to an execution window. Pure and total: no
// I/O, no failure conditions. A non-idle override forces the mode while
// keeping the window derivation for the reference date.
func SelectMode(now time.Time, override domain.ExecutionMode, s Sessions) domain.ExecutionWindow {
	local := now.In(s.Location)

	if win, ok := windowFor(local, domain.ModeAfternoonRefresh, s.RefreshStart, s.RefreshEnd, s.Location); ok {
		return applyOverride(win, override)
	}
	if win, ok := windowFor(local, domain.ModeEveningSelect, s.SelectStart, s.SelectEnd, s.Location); ok {
		return applyOverride(win, override)
	}

	idle := domain.ExecutionWindow{
		ReferenceDate: domain.NewDate(local),
		Mode:          domain.ModeIdle,
	}
	return applyOverride(idle, override)
}

// windowFor reports whether local falls inside the [start, end) window,
// including the post-midnight tail of a window whose end exceeds 24h.
func windowFor(local time.Time, mode domain.ExecutionMode, start, end time.Duration, loc *time.Location) (domain.ExecutionWindow, bool) {
	const day = 24 * time.Hour

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	sinceMidnight := local.Sub(midnight)

	// Same-day portion of the window.
	if sinceMidnight >= start && sinceMidnight < minDuration(end, day) {
		return domain.ExecutionWindow{
			ReferenceDate: domain.NewDate(local),
			Mode:          mode,
			WindowStart:   midnight.Add(start),
			WindowEnd:     midnight.Add(end),
		}, true
	}

	// Post-midnight tail: the window started yesterday.
	if end > day && sinceMidnight < end-day {
		prevMidnight := midnight.AddDate(0, 0, -1)
		return domain.ExecutionWindow{
			ReferenceDate: domain.NewDate(prevMidnight),
			Mode:          mode,
			WindowStart:   prevMidnight.Add(start),
			WindowEnd:     prevMidnight.Add(end),
		}, true
	}

	return domain.ExecutionWindow{}, false
}

func applyOverride(win domain.ExecutionWindow, override domain.ExecutionMode) domain.ExecutionWindow {
	if override == domain.ModeAfternoonRefresh || override == domain.ModeEveningSelect {
		win.Mode = override
	}
	return win
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
