package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
)

// SetItemCategories replaces the categories of an item. Category names are
// matched case-insensitively and created on first use.
func (s *Store) SetItemCategories(ctx context.Context, id content.ID, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, int64(id)).Scan(&exists); err != nil {
		return notFound(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_categories WHERE item_id = ?`, int64(id)); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	now := formatTime(s.now())
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		lower := strings.ToLower(name)
		if name == "" || seen[lower] {
			continue
		}
		seen[lower] = true

		categoryID, err := ensureCategory(ctx, tx, name, lower, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_categories (item_id, category_id) VALUES (?, ?)`,
			int64(id), categoryID); err != nil {
			return fmt.Errorf("link category %q: %w", name, err)
		}
	}

	return tx.Commit()
}

func ensureCategory(ctx context.Context, tx *sql.Tx, name, lower, now string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO categories (name, name_lower, created_at) VALUES (?, ?, ?)
		ON CONFLICT (name_lower) DO NOTHING`,
		name, lower, now); err != nil {
		return 0, fmt.Errorf("create category %q: %w", name, err)
	}

	var categoryID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name_lower = ?`, lower).Scan(&categoryID); err != nil {
		return 0, fmt.Errorf("get category %q: %w", name, err)
	}
	return categoryID, nil
}

// itemCategories returns category names of an item sorted by name.
func (s *Store) itemCategories(ctx context.Context, id content.ID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name FROM categories c
		JOIN item_categories ic ON ic.category_id = c.id
		WHERE ic.item_id = ?
		ORDER BY c.name`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
