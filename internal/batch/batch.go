// Package batch runs the bulk tools over decoded CSV rows.
//
// Rows are processed one at a time in file order. Every row lands in exactly
// one outcome bucket; row-level problems become diagnostics and never stop
// the batch. Only an unreadable file aborts.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/listenupapp/bulkmeta/internal/csvrow"
	"github.com/listenupapp/bulkmeta/internal/domain"
)

// RowSource yields decoded rows. *csvrow.Reader satisfies it.
type RowSource interface {
	Next() (csvrow.Row, error)
}

// Tool is one bulk operation.
type Tool interface {
	Name() string
	Columns() int
	Run(ctx context.Context, rows RowSource) Result
}

// Result is the tally of one batch.
type Result struct {
	Tool string `json:"tool"`
	domain.RunCounts

	// Diagnostics are per-row messages in file order.
	Diagnostics []string `json:"diagnostics"`

	// Aborted is set when the batch stopped before the end of the file.
	Aborted bool `json:"aborted,omitempty"`
}

func (r *Result) addf(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// RunFile opens path and runs tool over it. A file that cannot be opened
// aborts the batch with a single diagnostic.
func RunFile(ctx context.Context, tool Tool, path string) Result {
	f, err := os.Open(path)
	if err != nil {
		res := Result{Tool: tool.Name(), Aborted: true}
		res.addf("Could not open the CSV file for reading.")
		return res
	}
	defer f.Close()

	return tool.Run(ctx, csvrow.NewReader(f))
}

// rowFunc applies a tool to one well-formed row.
type rowFunc func(ctx context.Context, row csvrow.Row, res *Result)

// each drives the row loop shared by every tool. The context is only
// consulted between rows; a row that has started always finishes.
func each(ctx context.Context, logger *slog.Logger, tool string, rows RowSource, apply rowFunc) Result {
	res := Result{Tool: tool, Diagnostics: []string{}}
	lastLine := 1

	for {
		if err := ctx.Err(); err != nil {
			res.Aborted = true
			res.addf("Processing stopped after line %d: %v.", lastLine, err)
			logger.Warn("batch interrupted", "tool", tool, "line", lastLine, "error", err)
			return res
		}

		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			return res
		}
		if errors.Is(err, csvrow.ErrMalformedRow) {
			res.Rows++
			res.Skipped++
			res.addf("Line %d: the row could not be parsed. Skipped.", row.Line)
			if row.Line > lastLine {
				lastLine = row.Line
			}
			continue
		}
		if err != nil {
			res.Aborted = true
			res.addf("Reading the file failed after line %d.", lastLine)
			logger.Error("batch read failed", "tool", tool, "line", lastLine, "error", err)
			return res
		}

		res.Rows++
		lastLine = row.Line
		apply(ctx, row, &res)
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
