package schedule

import (
	"testing"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

func jst(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestSelectMode(t *testing.T) {
	loc := jst(t)
	sessions := DefaultSessions(loc)

	tests := []struct {
		name     string
		at       time.Time
		wantMode domain.ExecutionMode
		wantRef  domain.Date
	}{
		{
			name:     "morning is idle",
			at:       time.Date(2026, 3, 2, 9, 30, 0, 0, loc),
			wantMode: domain.ModeIdle,
			wantRef:  "2026-03-02",
		},
		{
			name:     "afternoon refresh window",
			at:       time.Date(2026, 3, 2, 14, 0, 0, 0, loc),
			wantMode: domain.ModeAfternoonRefresh,
			wantRef:  "2026-03-02",
		},
		{
			name:     "refresh start boundary inclusive",
			at:       time.Date(2026, 3, 2, 13, 0, 0, 0, loc),
			wantMode: domain.ModeAfternoonRefresh,
			wantRef:  "2026-03-02",
		},
		{
			name:     "refresh end boundary exclusive",
			at:       time.Date(2026, 3, 2, 16, 0, 0, 0, loc),
			wantMode: domain.ModeIdle,
			wantRef:  "2026-03-02",
		},
		{
			name:     "evening select window",
			at:       time.Date(2026, 3, 2, 23, 0, 0, 0, loc),
			wantMode: domain.ModeEveningSelect,
			wantRef:  "2026-03-02",
		},
		{
			name:     "post-midnight tail keeps the window's start day",
			at:       time.Date(2026, 3, 3, 1, 30, 0, 0, loc),
			wantMode: domain.ModeEveningSelect,
			wantRef:  "2026-03-02",
		},
		{
			name:     "tail end boundary exclusive",
			at:       time.Date(2026, 3, 3, 2, 0, 0, 0, loc),
			wantMode: domain.ModeIdle,
			wantRef:  "2026-03-03",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			win := SelectMode(tt.at, "", sessions)
			if win.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", win.Mode, tt.wantMode)
			}
			if win.ReferenceDate != tt.wantRef {
				t.Errorf("ReferenceDate = %v, want %v", win.ReferenceDate, tt.wantRef)
			}
		})
	}
}

func TestSelectModeIsPure(t *testing.T) {
	loc := jst(t)
	sessions := DefaultSessions(loc)
	at := time.Date(2026, 3, 2, 23, 0, 0, 0, loc)

	first := SelectMode(at, "", sessions)
	for i := 0; i < 100; i++ {
		if got := SelectMode(at, "", sessions); got != first {
			t.Fatalf("SelectMode not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestSelectModeOverride(t *testing.T) {
	loc := jst(t)
	sessions := DefaultSessions(loc)
	morning := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)

	win := SelectMode(morning, domain.ModeEveningSelect, sessions)
	if win.Mode != domain.ModeEveningSelect {
		t.Errorf("override ignored: %v", win.Mode)
	}
	if win.ReferenceDate != "2026-03-02" {
		t.Errorf("ReferenceDate = %v, want 2026-03-02", win.ReferenceDate)
	}

	// Idle is not a forceable mode.
	win = SelectMode(morning, domain.ModeIdle, sessions)
	if win.Mode != domain.ModeIdle {
		t.Errorf("idle morning should stay idle: %v", win.Mode)
	}
}

func TestSelectModeUTCInstantMapsToLocalWindow(t *testing.T) {
	loc := jst(t)
	sessions := DefaultSessions(loc)

	// 14:00 UTC is 23:00 JST, inside the selection window.
	win := SelectMode(time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), "", sessions)
	if win.Mode != domain.ModeEveningSelect {
		t.Errorf("Mode = %v, want EVENING_SELECT for 23:00 local", win.Mode)
	}
	if win.ReferenceDate != "2026-03-02" {
		t.Errorf("ReferenceDate = %v, want local day", win.ReferenceDate)
	}
}
