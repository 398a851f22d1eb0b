package batch

import (
	"context"
	"log/slog"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/csvrow"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/imgref"
	"github.com/listenupapp/bulkmeta/internal/validation"
)

// AltTextTask is one decoded alt-text row.
type AltTextTask struct {
	ImageURL string
	AltText  string
}

// AltTextTool sets attachment alt text and rewrites the <img> tags that
// embed each attachment.
type AltTextTool struct {
	lookup content.Lookup
	finder content.ReferenceFinder
	logger *slog.Logger
}

// NewAltTextTool creates the alt-text tool.
func NewAltTextTool(lookup content.Lookup, finder content.ReferenceFinder, logger *slog.Logger) *AltTextTool {
	return &AltTextTool{lookup: lookup, finder: finder, logger: logger}
}

// Name implements Tool.
func (t *AltTextTool) Name() string { return domain.ToolAltText }

// Columns implements Tool: image_url, alt_text.
func (t *AltTextTool) Columns() int { return 2 }

// Run implements Tool.
func (t *AltTextTool) Run(ctx context.Context, rows RowSource) Result {
	return each(ctx, t.logger, t.Name(), rows, t.applyRow)
}

func (t *AltTextTool) applyRow(ctx context.Context, row csvrow.Row, res *Result) {
	if err := row.Require(t.Columns()); err != nil || row.Field(0) == "" {
		res.Skipped++
		res.addf("Line %d: invalid format or empty image URL. Skipped.", row.Line)
		return
	}

	task := AltTextTask{ImageURL: row.Field(0), AltText: row.Field(1)}
	if !validation.URL(task.ImageURL) {
		res.Skipped++
		res.addf("Line %d: invalid image URL (%s). Skipped.", row.Line, task.ImageURL)
		return
	}

	id, found, err := t.lookup.ResolveAttachment(ctx, task.ImageURL)
	if err != nil {
		res.Failed++
		res.addf("Line %d: looking up %s failed.", row.Line, task.ImageURL)
		t.logger.Error("resolve attachment failed", "line", row.Line, "url", task.ImageURL, "error", err)
		return
	}
	if found {
		kind, err := t.lookup.ContentType(ctx, id)
		if err != nil {
			res.Failed++
			res.addf("Line %d: looking up %s failed.", row.Line, task.ImageURL)
			t.logger.Error("content type lookup failed", "line", row.Line, "id", int64(id), "error", err)
			return
		}
		found = kind == content.KindAttachment
	}
	if !found {
		res.NotFound++
		res.addf("Line %d: image not found or invalid for URL: %s", row.Line, task.ImageURL)
		return
	}

	if err := t.lookup.SetImageAlt(ctx, id, task.AltText); err != nil {
		res.Failed++
		res.addf("Line %d: could not save the alt text for %s.", row.Line, task.ImageURL)
		t.logger.Error("set image alt failed", "line", row.Line, "id", int64(id), "error", err)
		return
	}
	res.Updated++

	res.ContentUpdated += t.rewriteReferences(ctx, row.Line, id, task, res)
}

// rewriteReferences updates the alt attribute of every embedded reference
// to the attachment and returns the number of bodies written. Failures on a
// single body are reported and do not affect the row's outcome.
func (t *AltTextTool) rewriteReferences(ctx context.Context, line int, id content.ID, task AltTextTask, res *Result) int {
	candidates, err := t.finder.FindReferencing(ctx, content.FileName(task.ImageURL), id)
	if err != nil {
		res.addf("Line %d: alt text saved, but searching content for the image failed.", line)
		t.logger.Error("find referencing failed", "line", line, "id", int64(id), "error", err)
		return 0
	}

	written := 0
	for _, candidate := range candidates {
		if candidate == id {
			continue
		}
		body, err := t.lookup.ReadBody(ctx, candidate)
		if err != nil {
			res.addf("Line %d: could not read content %d.", line, int64(candidate))
			t.logger.Error("read body failed", "line", line, "id", int64(candidate), "error", err)
			continue
		}

		rewritten := imgref.Rewrite(body, id, task.ImageURL, task.AltText)
		if !rewritten.Changed {
			continue
		}
		if err := t.lookup.WriteBody(ctx, candidate, rewritten.Body); err != nil {
			res.addf("Line %d: could not update content %d.", line, int64(candidate))
			t.logger.Error("write body failed", "line", line, "id", int64(candidate), "error", err)
			continue
		}

		t.logger.Debug("rewrote image references",
			"attachment_id", int64(id),
			"content_id", int64(candidate),
			"references", rewritten.Count,
		)
		res.Rewrites += rewritten.Count
		written++
	}
	return written
}
