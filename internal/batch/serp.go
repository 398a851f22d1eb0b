package batch

import (
	"context"
	"log/slog"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/csvrow"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/validation"
)

// diagnosticURLLength caps URLs quoted in SERP diagnostics.
const diagnosticURLLength = 50

// EmptyCellPolicy decides what an empty title or description cell means.
type EmptyCellPolicy string

const (
	// EmptyCellsClear writes the empty value, resetting the field.
	EmptyCellsClear EmptyCellPolicy = "clear"
	// EmptyCellsKeep treats the cell as absent and leaves the field as is.
	EmptyCellsKeep EmptyCellPolicy = "keep"
)

// SerpTask is one decoded SERP row. A nil field is absent and left
// unchanged; a non-nil empty field clears the stored value.
type SerpTask struct {
	URL         string
	Title       *string
	Description *string
}

// ParseSerpTask builds a task from a row with at least three fields.
func ParseSerpTask(row csvrow.Row, policy EmptyCellPolicy) SerpTask {
	task := SerpTask{URL: row.Field(0)}
	title := sanitizeLine(row.Field(1))
	desc := sanitizeText(row.Field(2))

	if policy != EmptyCellsKeep || title != "" {
		task.Title = &title
	}
	if policy != EmptyCellsKeep || desc != "" {
		task.Description = &desc
	}
	return task
}

// SerpTool writes search-result title and description overrides.
type SerpTool struct {
	lookup content.Lookup
	policy EmptyCellPolicy
	logger *slog.Logger
}

// NewSerpTool creates the SERP tool. An unknown policy behaves as
// EmptyCellsClear.
func NewSerpTool(lookup content.Lookup, policy EmptyCellPolicy, logger *slog.Logger) *SerpTool {
	if policy != EmptyCellsKeep {
		policy = EmptyCellsClear
	}
	return &SerpTool{lookup: lookup, policy: policy, logger: logger}
}

// Name implements Tool.
func (t *SerpTool) Name() string { return domain.ToolSERP }

// Columns implements Tool: url, new_title, new_description.
func (t *SerpTool) Columns() int { return 3 }

// Policy returns the empty cell policy in effect.
func (t *SerpTool) Policy() EmptyCellPolicy { return t.policy }

// Run implements Tool.
func (t *SerpTool) Run(ctx context.Context, rows RowSource) Result {
	return each(ctx, t.logger, t.Name(), rows, t.applyRow)
}

func (t *SerpTool) applyRow(ctx context.Context, row csvrow.Row, res *Result) {
	if err := row.Require(t.Columns()); err != nil {
		res.Skipped++
		res.addf("Line %d: invalid format (expected URL, title, description). Skipped.", row.Line)
		return
	}

	task := ParseSerpTask(row, t.policy)
	shown := truncate(task.URL, diagnosticURLLength)
	if !validation.URL(task.URL) {
		res.Skipped++
		res.addf("Line %d: invalid or empty URL ('%s'). Skipped.", row.Line, shown)
		return
	}

	id, found, err := t.lookup.ResolvePage(ctx, task.URL)
	if err != nil {
		res.Failed++
		res.addf("Line %d: looking up '%s' failed.", row.Line, shown)
		t.logger.Error("resolve page failed", "line", row.Line, "url", task.URL, "error", err)
		return
	}
	if !found {
		res.NotFound++
		res.addf("Line %d: no post or page found for URL '%s'.", row.Line, shown)
		return
	}

	if task.Title == nil && task.Description == nil {
		res.Warned++
		res.addf("Line %d: URL found (%s, ID %d) but no title or description was provided.", row.Line, shown, int64(id))
		return
	}

	if task.Title != nil {
		if err := t.lookup.SetSEOTitle(ctx, id, *task.Title); err != nil {
			t.fail(row.Line, shown, id, err, res)
			return
		}
	}
	if task.Description != nil {
		if err := t.lookup.SetSEODescription(ctx, id, *task.Description); err != nil {
			t.fail(row.Line, shown, id, err, res)
			return
		}
	}
	res.Updated++
}

func (t *SerpTool) fail(line int, shown string, id content.ID, err error, res *Result) {
	res.Failed++
	res.addf("Line %d: could not save the SEO fields for '%s'.", line, shown)
	t.logger.Error("set seo metadata failed", "line", line, "id", int64(id), "error", err)
}
