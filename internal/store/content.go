package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetContent upserts a content mirror entry.
func (s *Store) SetContent(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("content key is required")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO content_entries (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set content %q: %w", key, err)
	}
	return nil
}

// GetContent returns a content mirror value and whether the key exists.
func (s *Store) GetContent(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM content_entries WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get content %q: %w", key, err)
	}
	return value, true, nil
}

// DeleteContent removes a content mirror entry, reporting whether it existed.
func (s *Store) DeleteContent(ctx context.Context, key string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM content_entries WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete content %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ContentKeys returns all content mirror keys in lexical order.
func (s *Store) ContentKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM content_entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list content keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
