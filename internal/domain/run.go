package domain

import "time"

// RunStatus is the overall outcome of one pipeline invocation.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusAborted RunStatus = "ABORTED"
)

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepStatusOK       StepStatus = "OK"
	StepStatusDegraded StepStatus = "DEGRADED" // completed on fallback/partial data
	StepStatusPartial  StepStatus = "PARTIAL"  // some units failed, rest applied
	StepStatusFailed   StepStatus = "FAILED"
	StepStatusSkipped  StepStatus = "SKIPPED" // not reached or not applicable
)

// Step names, in execution order.
const (
	StepVerifyWindow    = "verify-window"
	StepFetchMetadata   = "fetch-metadata"
	StepFetchPrices     = "fetch-prices"
	StepBackupVerify    = "backup-verify"
	StepScoreSelect     = "score-select"
	StepArchiveWrite    = "archive-write"
	StepPublishManifest = "publish-manifest"
)

// StepResult records per-step detail for the run report.
type StepResult struct {
	Name     string
	Status   StepStatus
	Detail   string
	Err      string // empty when the step had no error
	Duration time.Duration
}

// RunReport is the user-visible outcome of one invocation: an explicit
// status plus the full per-step error/degradation list. A PARTIAL or
// ABORTED run is never reported as SUCCESS.
type RunReport struct {
	Mode          ExecutionMode
	ReferenceDate Date
	Status        RunStatus
	DenyReason    string // set when the window guard denied the run
	StartedAt     time.Time
	FinishedAt    time.Time
	Steps         []StepResult
}

// Step returns the result for a named step, or nil if it never ran.
func (r *RunReport) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}
