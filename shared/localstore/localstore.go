// Package localstore is a small persistent key/value store scoped per
// namespace, used as the device-local cache for per-user settings.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catalyst-codex/codex/shared/logger"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create local store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		logger.Log.Warn("failed to enable WAL mode, continuing without it", "error", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS local_storage (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create local_storage table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetItem returns the value stored under key. found is false when nothing is stored.
func (s *Store) GetItem(ctx context.Context, namespace, key string) (value string, found bool, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT value FROM local_storage WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get local item %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *Store) SetItem(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("set local item %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, namespace, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM local_storage WHERE namespace = ? AND key = ?",
		namespace, key,
	); err != nil {
		return fmt.Errorf("remove local item %s/%s: %w", namespace, key, err)
	}
	return nil
}
