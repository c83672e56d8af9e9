package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the data root as a single JSON blob in a
// key-value table. Saves replace the row atomically, so a reader only
// ever observes a complete blob.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The store has a single writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (ledger.DataRoot, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, DataRootKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.DataRoot{}, false, nil
	}
	if err != nil {
		return ledger.DataRoot{}, false, fmt.Errorf("read data root: %w", err)
	}

	var root ledger.DataRoot
	if err := json.Unmarshal(blob, &root); err != nil {
		return ledger.DataRoot{}, false, fmt.Errorf("decode data root: %w", err)
	}
	return root, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, root ledger.DataRoot) error {
	blob, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode data root: %w", err)
	}
	if err := s.upsert(ctx, DataRootKey, blob); err != nil {
		return fmt.Errorf("write data root: %w", err)
	}
	slog.DebugContext(ctx, "Data root saved",
		"bytes", len(blob),
		"transactions", len(root.Transactions),
		"categories", len(root.Categories))
	return nil
}

func (s *SQLiteStore) ReadMarker(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read marker %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) WriteMarker(ctx context.Context, key, value string) error {
	if err := s.upsert(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("write marker %s: %w", key, err)
	}
	return nil
}

// Reset wipes every stored key, the wholesale clear behind "delete all
// data".
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

func (s *SQLiteStore) upsert(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}
