package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/notice"
	"github.com/listenupapp/bulkmeta/internal/search"
	"github.com/listenupapp/bulkmeta/internal/store"
	"github.com/listenupapp/bulkmeta/internal/store/sqlite"
)

type testEnv struct {
	store   *sqlite.Store
	index   *search.SearchIndex
	mailbox *notice.Mailbox
	logger  *slog.Logger
	dir     string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	mb, err := notice.Open(notice.Options{InMemory: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mb.Close() })

	return &testEnv{store: st, index: idx, mailbox: mb, logger: logger, dir: dir}
}

func (e *testEnv) createItem(t *testing.T, item *content.Item) *content.Item {
	t.Helper()
	require.NoError(t, e.store.CreateItem(context.Background(), item))
	return item
}

func storePage() store.PaginationParams {
	return store.PaginationParams{Limit: 10}
}

func editor() *domain.User {
	return &domain.User{ID: "user-editor", Email: "ed@site.example", Role: domain.RoleEditor}
}

func viewer() *domain.User {
	return &domain.User{ID: "user-viewer", Email: "vi@site.example", Role: domain.RoleViewer}
}

type recordingObserver struct {
	tool     string
	severity domain.Severity
	counts   domain.RunCounts
	calls    int
}

func (r *recordingObserver) ObserveRun(tool string, severity domain.Severity, c domain.RunCounts, _ time.Duration) {
	r.tool, r.severity, r.counts = tool, severity, c
	r.calls++
}

type recordingArchiver struct {
	paths []string
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, tool, runID, filePath string) (string, error) {
	a.paths = append(a.paths, filePath)
	if a.err != nil {
		return "", a.err
	}
	return tool + "/" + runID + ".csv", nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	slices.Sort(out)
	return out
}
