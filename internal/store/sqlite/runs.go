package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// runColumns must match the scan order in scanRun and the argument order in
// CreateRun.
const runColumns = `id, tool, user_id, filename, row_count, updated, not_found, skipped, warned, failed,
	content_updated, rewrites, severity, message, diagnostics, archive_key, started_at, finished_at`

var insertRunSQL = `INSERT INTO runs (` + runColumns + `) VALUES (` + placeholders(strings.Count(runColumns, ",")+1) + `)`

// placeholders returns n comma-separated bind markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*domain.Run, error) {
	var (
		r           domain.Run
		severity    string
		diagnostics string
		startedAt   string
		finishedAt  string
	)

	err := scanner.Scan(
		&r.ID,
		&r.Tool,
		&r.UserID,
		&r.Filename,
		&r.Counts.Rows,
		&r.Counts.Updated,
		&r.Counts.NotFound,
		&r.Counts.Skipped,
		&r.Counts.Warned,
		&r.Counts.Failed,
		&r.Counts.ContentUpdated,
		&r.Counts.Rewrites,
		&severity,
		&r.Message,
		&diagnostics,
		&r.ArchiveKey,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Severity = domain.Severity(severity)
	if err := json.Unmarshal([]byte(diagnostics), &r.Diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRun stores a finished run.
// Returns store.ErrAlreadyExists if the ID is taken.
func (s *Store) CreateRun(ctx context.Context, run *domain.Run) error {
	diagnostics := run.Diagnostics
	if diagnostics == nil {
		diagnostics = []string{}
	}
	encoded, err := json.Marshal(diagnostics)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertRunSQL,
		run.ID,
		run.Tool,
		run.UserID,
		run.Filename,
		run.Counts.Rows,
		run.Counts.Updated,
		run.Counts.NotFound,
		run.Counts.Skipped,
		run.Counts.Warned,
		run.Counts.Failed,
		run.Counts.ContentUpdated,
		run.Counts.Rewrites,
		string(run.Severity),
		run.Message,
		string(encoded),
		run.ArchiveKey,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Conflict("run", run.ID)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// ListRuns returns runs newest first. The cursor encodes the started_at and
// ID of the last run on the previous page.
func (s *Store) ListRuns(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Run], error) {
	params.Normalize()

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}

	if params.Cursor != "" {
		decoded, err := store.DecodeCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		startedAt, id, ok := strings.Cut(decoded, "|")
		if !ok {
			return nil, fmt.Errorf("%w: bad cursor", store.ErrInvalidInput)
		}
		query += ` WHERE (started_at < ? OR (started_at = ? AND id < ?))`
		args = append(args, startedAt, startedAt, id)
	}

	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, params.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &store.PaginatedResult[*domain.Run]{Items: runs}
	if len(runs) > params.Limit {
		result.Items = runs[:params.Limit]
		result.HasMore = true
		last := result.Items[len(result.Items)-1]
		result.NextCursor = store.EncodeCursor(formatTime(last.StartedAt) + "|" + last.ID)
	}
	return result, nil
}
