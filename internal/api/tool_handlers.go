package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/bulkmeta/internal/http/response"
	"github.com/listenupapp/bulkmeta/internal/service"
)

const (
	// uploadField is the multipart field carrying the CSV file.
	uploadField = "file"

	// multipartOverhead is allowed on top of the file cap for boundaries
	// and part headers.
	multipartOverhead = 1 << 20

	uploadTimeout = 5 * time.Minute
)

func (s *Server) registerToolRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listTools",
		Method:      http.MethodGet,
		Path:        "/api/v1/tools",
		Summary:     "List bulk tools",
		Description: "Lists the bulk tools and whether each can run with the current site configuration.",
		Tags:        []string{"Tools"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTools)

	// Uploads and CSV downloads use chi directly: huma has no multipart
	// support and the export is streamed.
	s.router.Post("/api/v1/tools/{tool}", withExtendedTimeout(s.handleRunTool, uploadTimeout))
	s.router.Get("/api/v1/tools/{tool}/template", s.handleToolTemplate)
	s.router.Get("/api/v1/export/posts", withExtendedTimeout(s.handleExportPosts, uploadTimeout))
}

// ToolsOutput wraps the tool list for Huma.
type ToolsOutput struct {
	Body struct {
		Tools []service.ToolStatus `json:"tools"`
	}
}

func (s *Server) handleListTools(ctx context.Context, _ *AuthenticatedInput) (*ToolsOutput, error) {
	if err := service.Authorize(userFromContext(ctx)); err != nil {
		return nil, err
	}
	out := &ToolsOutput{}
	out.Body.Tools = s.services.Bulk.Tools()
	return out, nil
}

// withExtendedTimeout lifts the server read and write deadlines for slow
// uploads and large downloads.
func withExtendedTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// Not every ResponseWriter supports deadlines; the defaults apply then.
		_ = rc.SetReadDeadline(time.Now().Add(timeout))
		_ = rc.SetWriteDeadline(time.Now().Add(timeout))
		next(w, r)
	}
}

// handleRunTool accepts a multipart upload and runs the named tool over it.
// The run summary is returned and also queued as a notice.
func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log(ctx)

	user := userFromContext(ctx)
	if err := service.Authorize(user); err != nil {
		response.HandleError(w, err, log.Logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.HandleError(w, s.services.Bulk.TooLarge(), log.Logger)
			return
		}
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	// A missing file still goes through the service so the failure is
	// queued as a notice like any other rejected upload.
	up := service.Upload{Size: -1}
	file, header, err := r.FormFile(uploadField)
	if err == nil {
		defer file.Close()
		up = service.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}

	outcome, err := s.services.Bulk.Run(ctx, user, chi.URLParam(r, "tool"), up)
	if err != nil {
		response.HandleError(w, err, log.Logger)
		return
	}

	response.Success(w, outcome, log.Logger)
}

// handleToolTemplate serves a sample CSV for the tool.
func (s *Server) handleToolTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log(ctx)

	if err := service.Authorize(userFromContext(ctx)); err != nil {
		response.HandleError(w, err, log.Logger)
		return
	}

	tool := chi.URLParam(r, "tool")
	body, err := service.Template(tool)
	if err != nil {
		response.HandleError(w, err, log.Logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(tool+"-template.csv"))
	_, _ = w.Write([]byte(body))
}

// handleExportPosts streams the published-posts CSV.
func (s *Server) handleExportPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log(ctx)

	user := userFromContext(ctx)
	if err := service.Authorize(user); err != nil {
		response.HandleError(w, err, log.Logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(s.services.Bulk.ExportFilename()))
	w.Header().Set("Cache-Control", "no-store")

	// Headers are committed with the first row, so a failure part-way
	// through can only be logged.
	if _, err := s.services.Bulk.ExportPosts(ctx, user, w); err != nil {
		log.WithError(err).Error("export interrupted", "user_id", user.ID)
	}
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
