// Package reporting renders run outcomes for operator consumption.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *domain.RunReport) string {
	var sb strings.Builder

	sb.WriteString("# Pipeline Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Mode: %s | Reference date: %s | Status: **%s**\n\n",
		r.Mode, r.ReferenceDate, r.Status))
	sb.WriteString(fmt.Sprintf("Started: %s | Finished: %s\n\n",
		r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339)))

	if r.DenyReason != "" {
		sb.WriteString(fmt.Sprintf("**Denied:** %s\n\n", r.DenyReason))
	}

	sb.WriteString("## Steps\n\n")
	if len(r.Steps) > 0 {
		sb.WriteString("| Step | Status | Detail | Error | Duration |\n")
		sb.WriteString("|------|--------|--------|-------|----------|\n")
		for _, s := range r.Steps {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				s.Name, s.Status, cell(s.Detail), cell(s.Err), s.Duration))
		}
	} else {
		sb.WriteString("No steps executed.\n")
	}
	sb.WriteString("\n")

	if bad := problems(r); len(bad) > 0 {
		sb.WriteString("## Problems\n\n")
		for _, p := range bad {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// problems collects the human-attention lines: failed, degraded and
// partial steps with their errors.
func problems(r *domain.RunReport) []string {
	var out []string
	for _, s := range r.Steps {
		switch s.Status {
		case domain.StepStatusFailed:
			out = append(out, fmt.Sprintf("%s FAILED: %s", s.Name, s.Err))
		case domain.StepStatusDegraded:
			out = append(out, fmt.Sprintf("%s ran degraded: %s", s.Name, s.Detail))
		case domain.StepStatusPartial:
			out = append(out, fmt.Sprintf("%s was partial: %s", s.Name, s.Detail))
		}
	}
	return out
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
