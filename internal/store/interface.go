// Package store defines the persistence contract for content, users and
// run history.
package store

import (
	"context"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
)

// Store is the full persistence interface. The SQLite implementation lives
// in the sqlite subpackage.
type Store interface {
	content.Lookup

	SetSearchIndexer(indexer SearchIndexer)

	// Content
	CreateItem(ctx context.Context, item *content.Item) error
	GetItem(ctx context.Context, id content.ID) (*content.Item, error)
	GetItemsByIDs(ctx context.Context, ids []content.ID) ([]*content.Item, error)
	EachItem(ctx context.Context, fn func(*content.Item) error) error
	GetMeta(ctx context.Context, id content.ID, key string) (string, bool, error)
	SetItemCategories(ctx context.Context, id content.ID, names []string) error
	EachPublishedPost(ctx context.Context, fn func(ExportRow) error) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	TouchLastLogin(ctx context.Context, id string) error

	// Runs
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Run], error)

	Close() error
}

// ExportRow is one line of the published-posts export.
type ExportRow struct {
	ID         content.ID
	Title      string
	URL        string
	Categories []string
}

// SearchIndexer keeps the search index in step with content writes.
type SearchIndexer interface {
	IndexItem(ctx context.Context, item *content.Item) error
	DeleteItem(ctx context.Context, id content.ID) error
}

// NoopSearchIndexer is used when no index is attached.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexItem(context.Context, *content.Item) error { return nil }
func (NoopSearchIndexer) DeleteItem(context.Context, content.ID) error   { return nil }

// NewNoopSearchIndexer creates a no-op search indexer.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }
