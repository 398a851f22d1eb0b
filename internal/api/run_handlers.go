package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/store"
)

func (s *Server) registerRunRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Description: "Returns processed uploads, newest first",
		Tags:        []string{"Runs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListRuns)

	register(s.api, huma.Operation{
		OperationID: "getRun",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{id}",
		Summary:     "Get run",
		Description: "Returns one processed upload with its counts and diagnostics",
		Tags:        []string{"Runs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRun)
}

// ListRunsInput contains parameters for listing runs.
type ListRunsInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Items per page"`
	Cursor        string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

// RunListResponse is one page of runs.
type RunListResponse struct {
	Runs       []*domain.Run `json:"runs" doc:"Runs, newest first"`
	NextCursor string        `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool          `json:"has_more" doc:"Whether more runs exist"`
}

// ListRunsOutput wraps the run list for Huma.
type ListRunsOutput struct {
	Body RunListResponse
}

// GetRunInput contains parameters for getting a run.
type GetRunInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Run ID"`
}

// RunOutput wraps a run for Huma.
type RunOutput struct {
	Body *domain.Run
}

func (s *Server) handleListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Runs.List(ctx, user, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}

	runs := page.Items
	if runs == nil {
		runs = []*domain.Run{}
	}
	return &ListRunsOutput{Body: RunListResponse{
		Runs:       runs,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleGetRun(ctx context.Context, input *GetRunInput) (*RunOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	run, err := s.services.Runs.Get(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &RunOutput{Body: run}, nil
}
