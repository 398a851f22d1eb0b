package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// itemColumns must match the scan order in scanItem.
const itemColumns = `id, kind, status, title, slug, url, body, thumbnail_id, created_at, updated_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (*content.Item, error) {
	var (
		it        content.Item
		kind      string
		status    string
		thumbnail sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&it.ID,
		&kind,
		&status,
		&it.Title,
		&it.Slug,
		&it.URL,
		&it.Body,
		&thumbnail,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.Kind = content.Kind(kind)
	it.Status = content.Status(status)
	if thumbnail.Valid {
		it.ThumbnailID = content.ID(thumbnail.Int64)
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem inserts item and assigns its ID. Categories on the item are
// linked in the same call. Returns store.ErrAlreadyExists when another item
// of the same kind already has the URL.
func (s *Store) CreateItem(ctx context.Context, item *content.Item) error {
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", store.ErrInvalidInput, item.Kind)
	}
	if strings.TrimSpace(item.URL) == "" {
		return fmt.Errorf("%w: url is required", store.ErrInvalidInput)
	}
	if item.Status == "" {
		item.Status = content.StatusPublish
		if item.Kind == content.KindAttachment {
			item.Status = content.StatusInherit
		}
	}

	now := s.now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (kind, status, title, slug, url, body, thumbnail_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Kind),
		string(item.Status),
		item.Title,
		item.Slug,
		item.URL,
		item.Body,
		nullInt64(int64(item.ThumbnailID)),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Conflict(string(item.Kind)+" url", item.URL)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: thumbnail %d does not exist", store.ErrInvalidInput, item.ThumbnailID)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	newID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	item.ID = content.ID(newID)

	if len(item.Categories) > 0 {
		if err := s.SetItemCategories(ctx, item.ID, item.Categories); err != nil {
			return err
		}
	}

	s.reindex(ctx, item.ID)
	return nil
}

// GetItem returns an item with its categories.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetItem(ctx context.Context, id content.ID) (*content.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, int64(id))
	it, err := scanItem(row)
	if err != nil {
		return nil, notFound(err)
	}
	if it.Categories, err = s.itemCategories(ctx, id); err != nil {
		return nil, err
	}
	return it, nil
}

// GetItemsByIDs returns the items that exist among ids, in ID order.
// Categories are not loaded.
func (s *Store) GetItemsByIDs(ctx context.Context, ids []content.ID) ([]*content.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = int64(id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id IN (`+strings.Join(placeholders, ",")+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// EachItem calls fn for every item in ID order. It stops at the first
// error fn returns.
func (s *Store) EachItem(ctx context.Context, fn func(*content.Item) error) error {
	var lastID int64
	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE id > ? ORDER BY id LIMIT 500`, lastID)
		if err != nil {
			return err
		}

		var page []*content.Item
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				rows.Close()
				return err
			}
			page = append(page, it)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		lastID = int64(page[len(page)-1].ID)
	}
}

// ResolveAttachment returns the attachment registered under exactly rawURL.
func (s *Store) ResolveAttachment(ctx context.Context, rawURL string) (content.ID, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM items WHERE kind = 'attachment' AND url = ?`, strings.TrimSpace(rawURL)).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve attachment: %w", err)
	}
	return content.ID(id), true, nil
}

// ResolvePage maps a permalink to a post or page. Query-style links
// (?p=ID, ?page_id=ID) resolve by ID; otherwise the URL is matched with
// query and fragment dropped, with or without a trailing slash.
func (s *Store) ResolvePage(ctx context.Context, rawURL string) (content.ID, bool, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false, nil
	}

	for _, key := range []string{"p", "page_id"} {
		if v := u.Query().Get(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n <= 0 {
				return 0, false, nil
			}
			var id int64
			err = s.db.QueryRowContext(ctx,
				`SELECT id FROM items WHERE id = ? AND kind IN ('post', 'page')`, n).Scan(&id)
			if err == sql.ErrNoRows {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, fmt.Errorf("resolve page: %w", err)
			}
			return content.ID(id), true, nil
		}
	}

	u.RawQuery = ""
	u.Fragment = ""
	base := strings.TrimRight(u.String(), "/")

	var id int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM items
		WHERE kind IN ('post', 'page') AND url IN (?, ?, ?)
		ORDER BY id LIMIT 1`,
		rawURL, base, base+"/").Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve page: %w", err)
	}
	return content.ID(id), true, nil
}

// ContentType returns the kind of the item.
func (s *Store) ContentType(ctx context.Context, id content.ID) (content.Kind, error) {
	var kind string
	err := s.db.QueryRowContext(ctx, `SELECT kind FROM items WHERE id = ?`, int64(id)).Scan(&kind)
	if err != nil {
		return "", notFound(err)
	}
	return content.Kind(kind), nil
}

// ReadBody returns the full body of an item.
func (s *Store) ReadBody(ctx context.Context, id content.ID) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM items WHERE id = ?`, int64(id)).Scan(&body)
	if err != nil {
		return "", notFound(err)
	}
	return body, nil
}

// WriteBody replaces the full body of an item and refreshes its index entry.
func (s *Store) WriteBody(ctx context.Context, id content.ID, body string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET body = ?, updated_at = ? WHERE id = ?`,
		body, formatTime(s.now()), int64(id))
	if err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound("item", id)
	}
	s.reindex(ctx, id)
	return nil
}

// reindex pushes the current state of an item to the search index. Index
// failures are logged and not returned; the database is authoritative.
func (s *Store) reindex(ctx context.Context, id content.ID) {
	it, err := s.GetItem(ctx, id)
	if err != nil {
		s.logger.Warn("reindex: load item failed", "item_id", int64(id), "error", err)
		return
	}
	if err := s.searchIndexer.IndexItem(ctx, it); err != nil {
		s.logger.Warn("reindex failed", "item_id", int64(id), "error", err)
	}
}
