package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (s *Store) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	query := `SELECT name, kind FROM categories ORDER BY kind, name`
	args := []any{}
	if kind != "" {
		query = `SELECT name, kind FROM categories WHERE kind = ? ORDER BY name`
		args = append(args, string(kind))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var k string
		if err := rows.Scan(&c.Name, &k); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(k)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

func (s *Store) CategoryExists(ctx context.Context, name string, kind core.Kind) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE name = ? AND kind = ?`, name, string(kind)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return true, nil
}
