package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// KVRepository is the durable key/value tier. Values are opaque bytes.
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new KVRepository with the given database connection
func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value stored under key, or an error wrapping [shared.ErrNotFound].
func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: key %q", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, storageErr("failed to read key", err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, models.FormatTimestamp(time.Now())); err != nil {
		return storageErr("failed to write key", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return storageErr("failed to delete key", err)
	}
	return nil
}

// Keys lists keys starting with prefix in lexical order. An empty prefix lists everything.
//
// Matching uses substr rather than LIKE so that '_' in prefixes is literal.
func (r *KVRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key", len([]rune(prefix)), prefix)
	if err != nil {
		return nil, storageErr("failed to list keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storageErr("failed to scan key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration error", err)
	}
	return keys, nil
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (r *KVRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("%w: refusing to delete with an empty prefix", shared.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM kv WHERE substr(key, 1, ?) = ?", len([]rune(prefix)), prefix)
	if err != nil {
		return 0, storageErr("failed to delete keys", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("failed to get affected rows", err)
	}
	return int(rows), nil
}
