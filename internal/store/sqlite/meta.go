package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// SetImageAlt stores the canonical alt text of an attachment.
func (s *Store) SetImageAlt(ctx context.Context, id content.ID, text string) error {
	return s.setMeta(ctx, id, content.MetaImageAlt, text)
}

// SetSEOTitle stores the search-result title override of a page.
func (s *Store) SetSEOTitle(ctx context.Context, id content.ID, text string) error {
	return s.setMeta(ctx, id, content.MetaSEOTitle, text)
}

// SetSEODescription stores the search-result description override of a page.
func (s *Store) SetSEODescription(ctx context.Context, id content.ID, text string) error {
	return s.setMeta(ctx, id, content.MetaSEODescription, text)
}

// GetMeta returns a metadata value and whether it is set.
func (s *Store) GetMeta(ctx context.Context, id content.ID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT meta_value FROM item_meta WHERE item_id = ? AND meta_key = ?`, int64(id), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) setMeta(ctx context.Context, id content.ID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_meta (item_id, meta_key, meta_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_id, meta_key) DO UPDATE SET
			meta_value = excluded.meta_value,
			updated_at = excluded.updated_at`,
		int64(id), key, value, formatTime(s.now()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.NotFound("item", id)
		}
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
