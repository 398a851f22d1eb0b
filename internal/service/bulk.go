// Package service holds the business logic behind the HTTP API: bulk
// metadata runs, content administration, run history and sign-in.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/bulkmeta/internal/archive"
	"github.com/listenupapp/bulkmeta/internal/batch"
	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/export"
	"github.com/listenupapp/bulkmeta/internal/id"
	"github.com/listenupapp/bulkmeta/internal/ratelimit"
	"github.com/listenupapp/bulkmeta/internal/report"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// Content types accepted without a warning.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
}

// NoticeBox holds notices for clients that redirect after an upload.
type NoticeBox interface {
	Post(ctx context.Context, userID string, n report.Notice) error
	Drain(ctx context.Context, userID string) ([]report.Notice, error)
}

// RunObserver records finished runs. *metrics.Metrics satisfies it.
type RunObserver interface {
	ObserveRun(tool string, severity domain.Severity, c domain.RunCounts, d time.Duration)
}

// Upload is one file received for a bulk tool.
type Upload struct {
	Filename    string
	ContentType string
	// Size as declared by the client, or -1 when unknown.
	Size int64
	Body io.Reader
}

// RunOutcome is what an upload produced.
type RunOutcome struct {
	Run    *domain.Run   `json:"run"`
	Notice report.Notice `json:"notice"`
}

// BulkConfig holds the tool settings.
type BulkConfig struct {
	MaxUploadBytes  int64
	SEOPluginActive bool
	SerpEmptyCells  batch.EmptyCellPolicy
	TempDir         string

	// SiteURL, when set, resolves site-relative URLs in uploaded rows.
	SiteURL string
}

// BulkService runs the alt-text and SERP tools over uploaded files.
type BulkService struct {
	store    store.Store
	finder   content.ReferenceFinder
	notices  NoticeBox
	archiver archive.Archiver
	observer RunObserver
	limiter  *ratelimit.KeyedRateLimiter
	cfg      BulkConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewBulkService creates the bulk service. archiver, observer and limiter
// may be nil.
func NewBulkService(
	st store.Store,
	finder content.ReferenceFinder,
	notices NoticeBox,
	archiver archive.Archiver,
	observer RunObserver,
	limiter *ratelimit.KeyedRateLimiter,
	cfg BulkConfig,
	logger *slog.Logger,
) *BulkService {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &BulkService{
		store:    st,
		finder:   finder,
		notices:  notices,
		archiver: archiver,
		observer: observer,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Authorize checks that user may run the bulk tools and export content.
func Authorize(user *domain.User) error {
	if user == nil {
		return domainerrors.Unauthorized("authentication required")
	}
	if !user.CanManageMetadata() {
		return domainerrors.PermissionDenied("You do not have permission to access this page.")
	}
	return nil
}

func (s *BulkService) tool(name string) (batch.Tool, error) {
	switch name {
	case domain.ToolAltText:
		return batch.NewAltTextTool(newSiteLookup(s.store, s.cfg.SiteURL), s.finder, s.logger), nil
	case domain.ToolSERP:
		if !s.cfg.SEOPluginActive {
			return nil, domainerrors.Precondition("The SEO plugin must be active to update titles and descriptions.")
		}
		return batch.NewSerpTool(newSiteLookup(s.store, s.cfg.SiteURL), s.cfg.SerpEmptyCells, s.logger), nil
	}
	return nil, domainerrors.NotFoundf("unknown tool %q", name)
}

// ToolStatus reports whether a tool can currently run.
type ToolStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Tools lists the bulk tools in menu order.
func (s *BulkService) Tools() []ToolStatus {
	serp := ToolStatus{Name: domain.ToolSERP, Available: s.cfg.SEOPluginActive}
	if !serp.Available {
		serp.Reason = "SEO plugin inactive"
	}
	return []ToolStatus{
		{Name: domain.ToolAltText, Available: true},
		serp,
	}
}

// Run validates the upload, runs the named tool over it and records the
// run. Upload problems are returned as errors and also left in the user's
// mailbox. Row-level problems are part of the returned notice.
func (s *BulkService) Run(ctx context.Context, user *domain.User, toolName string, up Upload) (*RunOutcome, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	tool, err := s.tool(toolName)
	if err != nil {
		return nil, err
	}
	if s.limiter != nil {
		if ok, wait := s.limiter.Allow(user.ID); !ok {
			return nil, domainerrors.RateLimited("Too many uploads. Try again shortly.").
				WithDetails(map[string]int{"retry_after_seconds": int(wait.Seconds()) + 1})
		}
	}

	warning, err := s.checkUpload(up)
	if err != nil {
		s.postUploadError(ctx, user.ID, err)
		return nil, err
	}

	path, err := s.spool(up)
	if err != nil {
		s.postUploadError(ctx, user.ID, err)
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("remove spooled upload", "path", path, "error", rmErr)
		}
	}()

	runID, err := id.Generate(id.PrefixRun)
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	log := s.logger.With("run_id", runID, "tool", toolName, "user_id", user.ID)
	log.Info("bulk run started", "filename", up.Filename)

	started := s.now()
	res := batch.RunFile(ctx, tool, path)
	if warning != "" {
		res.Diagnostics = append([]string{warning}, res.Diagnostics...)
	}
	finished := s.now()
	notice := report.Render(toolName, res)

	run := &domain.Run{
		ID:          runID,
		Tool:        toolName,
		UserID:      user.ID,
		Filename:    up.Filename,
		Counts:      res.RunCounts,
		Severity:    notice.Severity,
		Message:     notice.Message,
		Diagnostics: res.Diagnostics,
		StartedAt:   started,
		FinishedAt:  finished,
	}

	if key, err := s.archiver.Archive(ctx, toolName, runID, path); err != nil {
		log.Warn("archive upload failed", "error", err)
	} else {
		run.ArchiveKey = key
	}

	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Error("save run failed", "error", err)
	}
	if err := s.notices.Post(ctx, user.ID, notice); err != nil {
		log.Warn("post notice failed", "error", err)
	}
	if s.observer != nil {
		s.observer.ObserveRun(toolName, notice.Severity, res.RunCounts, run.Duration())
	}

	log.Info("bulk run finished",
		"rows", res.Rows,
		"updated", res.Updated,
		"not_found", res.NotFound,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"content_updated", res.ContentUpdated,
		"severity", notice.Severity,
		"duration", run.Duration(),
	)

	return &RunOutcome{Run: run, Notice: notice}, nil
}

// checkUpload applies the size, extension and content-type rules. An
// unexpected content type is only a warning, returned as a diagnostic.
func (s *BulkService) checkUpload(up Upload) (string, error) {
	if up.Body == nil || up.Filename == "" {
		return "", domainerrors.Resource("No file was uploaded.")
	}
	if up.Size > s.cfg.MaxUploadBytes {
		return "", s.TooLarge()
	}
	if !strings.EqualFold(filepath.Ext(up.Filename), ".csv") {
		return "", domainerrors.Resource("Please upload a file with the .csv extension.")
	}

	if up.ContentType == "" {
		return "", nil
	}
	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || !csvContentTypes[strings.ToLower(mediaType)] {
		return fmt.Sprintf("The file type %q is not a recognised CSV type. Processing it anyway.", up.ContentType), nil
	}
	return "", nil
}

// TooLarge is the error for an upload over the size cap.
func (s *BulkService) TooLarge() error {
	return domainerrors.TooLarge(fmt.Sprintf("The file exceeds the maximum size of %s.", formatBytes(s.cfg.MaxUploadBytes)))
}

// spool copies the upload to a temporary file, enforcing the size cap on
// the bytes actually received.
func (s *BulkService) spool(up Upload) (string, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "bulkmeta-*.csv")
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeResource, "The uploaded file could not be stored.")
	}
	path := f.Name()

	n, copyErr := io.Copy(f, io.LimitReader(up.Body, s.cfg.MaxUploadBytes+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", domainerrors.Wrap(copyErr, domainerrors.CodeResource, "The uploaded file could not be read.")
	case closeErr != nil:
		_ = os.Remove(path)
		return "", domainerrors.Wrap(closeErr, domainerrors.CodeResource, "The uploaded file could not be stored.")
	case n > s.cfg.MaxUploadBytes:
		_ = os.Remove(path)
		return "", s.TooLarge()
	}
	return path, nil
}

func (s *BulkService) postUploadError(ctx context.Context, userID string, err error) {
	var domainErr *domainerrors.Error
	msg := err.Error()
	if domainerrors.As(err, &domainErr) {
		msg = domainErr.Message
	}
	if postErr := s.notices.Post(ctx, userID, report.Error(msg)); postErr != nil {
		s.logger.Warn("post notice failed", "user_id", userID, "error", postErr)
	}
}

// Notices drains the notices waiting for user.
func (s *BulkService) Notices(ctx context.Context, user *domain.User) ([]report.Notice, error) {
	if user == nil {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	notices, err := s.notices.Drain(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("drain notices: %w", err)
	}
	if notices == nil {
		notices = []report.Notice{}
	}
	return notices, nil
}

// ExportPosts writes the published-posts CSV to w.
func (s *BulkService) ExportPosts(ctx context.Context, user *domain.User, w io.Writer) (int, error) {
	if err := Authorize(user); err != nil {
		return 0, err
	}
	n, err := export.WritePosts(ctx, w, s.store)
	if err != nil {
		return n, err
	}
	s.logger.Info("posts exported", "user_id", user.ID, "rows", n)
	return n, nil
}

// ExportFilename returns the download name for an export taken now.
func (s *BulkService) ExportFilename() string {
	return export.Filename(s.now())
}

// Template returns a sample CSV for the named tool.
func Template(toolName string) (string, error) {
	switch toolName {
	case domain.ToolAltText:
		return "image_url,alt_text\nhttps://example.com/wp-content/uploads/2024/05/cat.jpg,A ginger cat asleep on a sofa\n", nil
	case domain.ToolSERP:
		return "url,new_title,new_description\nhttps://example.com/about/,About us,Who we are and what we do.\n", nil
	}
	return "", domainerrors.NotFoundf("unknown tool %q", toolName)
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	if n >= 1<<10 {
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d bytes", n)
}
