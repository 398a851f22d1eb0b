package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// EachPublishedPost streams published posts in ID order with their
// categories sorted by name. Pages and attachments are not included.
func (s *Store) EachPublishedPost(ctx context.Context, fn func(store.ExportRow) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.title, i.url, c.name
		FROM items i
		LEFT JOIN item_categories ic ON ic.item_id = i.id
		LEFT JOIN categories c ON c.id = ic.category_id
		WHERE i.kind = 'post' AND i.status = 'publish'
		ORDER BY i.id, c.name`)
	if err != nil {
		return fmt.Errorf("query published posts: %w", err)
	}
	defer rows.Close()

	var (
		cur     store.ExportRow
		pending bool
	)
	for rows.Next() {
		var (
			id       int64
			title    string
			url      string
			category sql.NullString
		)
		if err := rows.Scan(&id, &title, &url, &category); err != nil {
			return err
		}

		if !pending || content.ID(id) != cur.ID {
			if pending {
				if err := fn(cur); err != nil {
					return err
				}
			}
			cur = store.ExportRow{ID: content.ID(id), Title: title, URL: url}
			pending = true
		}
		if category.Valid {
			cur.Categories = append(cur.Categories, category.String)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if pending {
		return fn(cur)
	}
	return nil
}
