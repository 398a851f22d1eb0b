package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/search"
	"github.com/listenupapp/bulkmeta/internal/service"
)

func (s *Server) registerContentRoutes() {
	register(s.api, huma.Operation{
		OperationID:   "createContent",
		Method:        http.MethodPost,
		Path:          "/api/v1/content",
		Summary:       "Create content",
		Description:   "Stores a post, page or attachment",
		Tags:          []string{"Content"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateContent)

	register(s.api, huma.Operation{
		OperationID: "searchContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/content",
		Summary:     "Search content",
		Description: "Full-text search over titles and bodies",
		Tags:        []string{"Content"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchContent)

	register(s.api, huma.Operation{
		OperationID: "getContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{id}",
		Summary:     "Get content",
		Description: "Returns an item with its categories and bulk-editable metadata",
		Tags:        []string{"Content"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetContent)

	register(s.api, huma.Operation{
		OperationID: "setContentCategories",
		Method:      http.MethodPut,
		Path:        "/api/v1/content/{id}/categories",
		Summary:     "Set categories",
		Description: "Replaces the categories of an item",
		Tags:        []string{"Content"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetCategories)
}

// CreateContentInput wraps the create request for Huma.
type CreateContentInput struct {
	Authorization string `header:"Authorization"`
	Body          service.CreateContentRequest
}

// ContentOutput wraps a content view for Huma.
type ContentOutput struct {
	Body *service.ContentView
}

// GetContentInput contains parameters for getting an item.
type GetContentInput struct {
	Authorization string `header:"Authorization"`
	ID            int64  `path:"id" minimum:"1" doc:"Content ID"`
}

// SearchContentInput contains search parameters.
type SearchContentInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" doc:"Search text"`
	Kind          string `query:"kind" doc:"Comma-separated kinds to include: post, page, attachment"`
	Limit         int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Results per page"`
	Offset        int    `query:"offset" default:"0" minimum:"0" doc:"Results to skip"`
}

// SearchContentOutput wraps search results for Huma.
type SearchContentOutput struct {
	Body *search.SearchResult
}

// SetCategoriesRequest replaces an item's categories.
type SetCategoriesRequest struct {
	Categories []string `json:"categories" validate:"dive,required,max=200" doc:"Category names; an empty list clears them"`
}

// SetCategoriesInput wraps the category update for Huma.
type SetCategoriesInput struct {
	Authorization string `header:"Authorization"`
	ID            int64  `path:"id" minimum:"1" doc:"Content ID"`
	Body          SetCategoriesRequest
}

func (s *Server) handleCreateContent(ctx context.Context, input *CreateContentInput) (*ContentOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Content.Create(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &ContentOutput{Body: view}, nil
}

func (s *Server) handleGetContent(ctx context.Context, input *GetContentInput) (*ContentOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Content.Get(ctx, user, content.ID(input.ID))
	if err != nil {
		return nil, err
	}
	return &ContentOutput{Body: view}, nil
}

func (s *Server) handleSearchContent(ctx context.Context, input *SearchContentInput) (*SearchContentOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var kinds []content.Kind
	for k := range strings.SplitSeq(input.Kind, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, content.Kind(k))
		}
	}

	result, err := s.services.Content.Search(ctx, user, search.SearchParams{
		Query:  input.Query,
		Kinds:  kinds,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchContentOutput{Body: result}, nil
}

func (s *Server) handleSetCategories(ctx context.Context, input *SetCategoriesInput) (*ContentOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Content.SetCategories(ctx, user, content.ID(input.ID), input.Body.Categories)
	if err != nil {
		return nil, err
	}
	return &ContentOutput{Body: view}, nil
}
