// Package report turns a batch result into the single summary notice shown
// to the user. Rendering is pure and may be repeated.
package report

import (
	"fmt"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/batch"
	"github.com/listenupapp/bulkmeta/internal/domain"
)

// MaxDiagnostics is how many diagnostics a notice lists before the tail.
const MaxDiagnostics = 5

// Notice is the rendered summary of a run.
type Notice struct {
	Severity domain.Severity `json:"severity"`
	Message  string          `json:"message"`
	Details  []string        `json:"details,omitempty"`
}

// Text returns the message followed by the details as a bulleted list.
func (n Notice) Text() string {
	if len(n.Details) == 0 {
		return n.Message
	}
	var b strings.Builder
	b.WriteString(n.Message)
	for _, d := range n.Details {
		b.WriteString("\n- ")
		b.WriteString(d)
	}
	return b.String()
}

// Render builds the notice for a result of the named tool.
func Render(tool string, res batch.Result) Notice {
	var n Notice
	switch tool {
	case domain.ToolSERP:
		n = renderSerp(res)
	default:
		n = renderAltText(res)
	}
	if res.Aborted {
		n.Severity = domain.SeverityError
		if n.Message == "" {
			n.Message = "The file could not be processed."
		}
	}
	n.Details = capDiagnostics(res.Diagnostics)
	return n
}

// Error renders a batch-fatal failure that happened before any row was read.
func Error(message string) Notice {
	return Notice{Severity: domain.SeverityError, Message: message}
}

func renderAltText(res batch.Result) Notice {
	if res.Updated == 0 && res.NotFound == 0 && res.Skipped == 0 && res.Failed == 0 {
		if res.Aborted {
			return Notice{}
		}
		return Notice{Severity: domain.SeverityWarning, Message: "No images were updated. Check the contents of the CSV file."}
	}

	parts := []string{countf(res.Updated, "image updated", "images updated")}
	if res.ContentUpdated > 0 {
		parts = append(parts, countf(res.ContentUpdated, "post updated", "posts updated"))
	}
	parts = appendNonZero(parts, res.Rewrites, "image reference updated", "image references updated")
	parts = appendNonZero(parts, res.NotFound, "not found", "not found")
	parts = appendNonZero(parts, res.Skipped, "row skipped", "rows skipped")
	parts = appendNonZero(parts, res.Failed, "row failed", "rows failed")

	severity := domain.SeveritySuccess
	switch {
	case res.NotFound > 0 || res.Failed > 0:
		severity = domain.SeverityWarning
	case res.Skipped > 0 && res.Updated == 0:
		severity = domain.SeverityInfo
	case res.Skipped > 0:
		severity = domain.SeverityWarning
	}
	return Notice{Severity: severity, Message: strings.Join(parts, " ")}
}

func renderSerp(res batch.Result) Notice {
	if res.Updated == 0 && res.NotFound == 0 && res.Skipped == 0 && res.Warned == 0 && res.Failed == 0 {
		if res.Aborted {
			return Notice{}
		}
		return Notice{Severity: domain.SeverityWarning, Message: "No pages were updated. Check the contents of the CSV file."}
	}

	parts := []string{countf(res.Updated, "page updated", "pages updated")}
	parts = appendNonZero(parts, res.NotFound, "not found", "not found")
	parts = appendNonZero(parts, res.Skipped, "row skipped", "rows skipped")
	parts = appendNonZero(parts, res.Warned, "warning", "warnings")
	parts = appendNonZero(parts, res.Failed, "row failed", "rows failed")

	severity := domain.SeveritySuccess
	switch {
	case res.NotFound > 0 || res.Skipped > 0 || res.Failed > 0:
		severity = domain.SeverityError
	case res.Warned > 0:
		severity = domain.SeverityWarning
	}
	return Notice{Severity: severity, Message: strings.Join(parts, " ")}
}

func countf(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s.", n, singular)
	}
	return fmt.Sprintf("%d %s.", n, plural)
}

func appendNonZero(parts []string, n int, singular, plural string) []string {
	if n == 0 {
		return parts
	}
	return append(parts, countf(n, singular, plural))
}

func capDiagnostics(diags []string) []string {
	if len(diags) == 0 {
		return nil
	}
	if len(diags) <= MaxDiagnostics {
		return append([]string(nil), diags...)
	}
	out := append([]string(nil), diags[:MaxDiagnostics]...)
	return append(out, fmt.Sprintf("… and %d more omitted.", len(diags)-MaxDiagnostics))
}
