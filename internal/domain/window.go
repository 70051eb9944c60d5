package domain

import "time"

// ExecutionMode identifies which session a scheduled invocation belongs to.
type ExecutionMode string

const (
	// ModeAfternoonRefresh is the intraday session: refresh non-destructive
	// data for the current reference date.
	ModeAfternoonRefresh ExecutionMode = "AFTERNOON_REFRESH"

	// ModeEveningSelect is the end-of-day session: produce the selection
	// artifact consumed on the next trading day.
	ModeEveningSelect ExecutionMode = "EVENING_SELECT"

	// ModeIdle means the invocation falls outside both sessions and the
	// runner does nothing.
	ModeIdle ExecutionMode = "IDLE"
)

// ExecutionWindow is the derived window for one invocation. Never stored.
type ExecutionWindow struct {
	ReferenceDate Date
	Mode          ExecutionMode
	WindowStart   time.Time
	WindowEnd     time.Time
}
