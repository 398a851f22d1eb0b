package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/search"
	"github.com/listenupapp/bulkmeta/internal/store"
	"github.com/listenupapp/bulkmeta/internal/util"
	"github.com/listenupapp/bulkmeta/internal/validation"
)

// Searcher runs full-text content queries.
type Searcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// ContentService administers content items: creation for seeding,
// inspection, search and category assignment.
type ContentService struct {
	store     store.Store
	searcher  Searcher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewContentService creates the content service.
func NewContentService(st store.Store, searcher Searcher, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:     st,
		searcher:  searcher,
		validator: validation.New(),
		logger:    logger,
	}
}

// CreateContentRequest describes a new content item.
type CreateContentRequest struct {
	Kind        content.Kind   `json:"kind" validate:"required,oneof=post page attachment"`
	Status      content.Status `json:"status,omitempty" validate:"omitempty,oneof=publish draft inherit"`
	Title       string         `json:"title,omitempty" validate:"max=1000"`
	Slug        string         `json:"slug,omitempty" validate:"max=200"`
	URL         string         `json:"url" validate:"required,url"`
	Body        string         `json:"body,omitempty"`
	ThumbnailID int64          `json:"thumbnail_id,omitempty" validate:"gte=0"`
	Categories  []string       `json:"categories,omitempty" validate:"dive,required,max=200"`
}

// ContentView is an item with the metadata the bulk tools write.
type ContentView struct {
	ID          content.ID        `json:"id"`
	Kind        content.Kind      `json:"kind"`
	Status      content.Status    `json:"status"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug,omitempty"`
	URL         string            `json:"url"`
	Body        string            `json:"body,omitempty"`
	ThumbnailID content.ID        `json:"thumbnail_id,omitempty"`
	Categories  []string          `json:"categories"`
	Meta        map[string]string `json:"meta"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

var viewMetaKeys = []string{
	content.MetaImageAlt,
	content.MetaSEOTitle,
	content.MetaSEODescription,
}

// Create stores a new item.
func (s *ContentService) Create(ctx context.Context, user *domain.User, req CreateContentRequest) (*ContentView, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = req.Title
	}

	item := &content.Item{
		Kind:        req.Kind,
		Status:      req.Status,
		Title:       req.Title,
		Slug:        util.Slugify(slug),
		URL:         strings.TrimSpace(req.URL),
		Body:        req.Body,
		ThumbnailID: content.ID(req.ThumbnailID),
		Categories:  req.Categories,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, storeError(err, "thumbnail not found")
	}

	s.logger.Info("content created", "id", int64(item.ID), "kind", item.Kind, "user_id", user.ID)
	return s.view(ctx, item.ID)
}

// Get returns one item with its tool-managed metadata.
func (s *ContentService) Get(ctx context.Context, user *domain.User, id content.ID) (*ContentView, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	return s.view(ctx, id)
}

func (s *ContentService) view(ctx context.Context, id content.ID) (*ContentView, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("content %d not found", id))
	}

	meta := make(map[string]string, len(viewMetaKeys))
	for _, key := range viewMetaKeys {
		v, ok, err := s.store.GetMeta(ctx, id, key)
		if err != nil {
			return nil, fmt.Errorf("get meta %s: %w", key, err)
		}
		if ok {
			meta[key] = v
		}
	}

	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}
	return &ContentView{
		ID:          item.ID,
		Kind:        item.Kind,
		Status:      item.Status,
		Title:       item.Title,
		Slug:        item.Slug,
		URL:         item.URL,
		Body:        item.Body,
		ThumbnailID: item.ThumbnailID,
		Categories:  categories,
		Meta:        meta,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}, nil
}

// Search runs a full-text query over titles and body text.
func (s *ContentService) Search(ctx context.Context, user *domain.User, params search.SearchParams) (*search.SearchResult, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	for _, k := range params.Kinds {
		if !k.Valid() {
			return nil, domainerrors.Validationf("unknown kind %q", k)
		}
	}
	return s.searcher.Search(ctx, params)
}

// SetCategories replaces the categories of an item.
func (s *ContentService) SetCategories(ctx context.Context, user *domain.User, id content.ID, names []string) (*ContentView, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	if err := s.store.SetItemCategories(ctx, id, names); err != nil {
		return nil, storeError(err, fmt.Sprintf("content %d not found", id))
	}
	return s.view(ctx, id)
}
