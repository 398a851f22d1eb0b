package domain

import "time"

// Tool names.
const (
	ToolAltText = "alt-text"
	ToolSERP    = "serp"
)

// Severity of a run summary.
type Severity string

// Severities, mildest first.
const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RunCounts are the per-outcome row tallies of a bulk run.
type RunCounts struct {
	Rows           int `json:"rows"`
	Updated        int `json:"updated"`
	NotFound       int `json:"not_found"`
	Skipped        int `json:"skipped"`
	Warned         int `json:"warned"`
	Failed         int `json:"failed"`
	ContentUpdated int `json:"content_updated"`
	Rewrites       int `json:"rewrites"`
}

// Run is the stored record of one processed upload.
type Run struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	Counts      RunCounts `json:"counts"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Diagnostics []string  `json:"diagnostics"`
	ArchiveKey  string    `json:"archive_key,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
