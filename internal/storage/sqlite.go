package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// SQLiteStore keeps the cache in a SQLite table. Each Save replaces every row
// in a single transaction.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath, logger: o.logger}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS item_vectors (
		position INTEGER PRIMARY KEY,
		item_id INTEGER NOT NULL,
		item TEXT NOT NULL,
		vec BLOB NOT NULL,
		aug_desc TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_item_vectors_item_id ON item_vectors(item_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Load reads every row in position order.
func (s *SQLiteStore) Load(ctx context.Context) (*Cache, bool) {
	entries, err := s.readAll(ctx)
	if err != nil {
		s.logger.Warn("vector cache ignored", zap.String("path", s.path), zap.Error(err))
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}
	return NewCache(entries), true
}

func (s *SQLiteStore) readAll(ctx context.Context) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item, vec, aug_desc FROM item_vectors ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var (
			itemJSON string
			blob     []byte
			e        models.CacheEntry
		)
		if err := rows.Scan(&itemJSON, &blob, &e.AugDesc); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		if err := json.Unmarshal([]byte(itemJSON), &e.Item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
		}
		v, err := vector.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
		}
		e.Vec = v
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Save replaces all rows with items.
func (s *SQLiteStore) Save(ctx context.Context, items []models.VectoredItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_vectors`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO item_vectors (position, item_id, item, vec, aug_desc) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		e := items[i].Entry()
		vec := e.Vec
		e.Vec = nil
		itemJSON, err := json.Marshal(e.Item)
		if err != nil {
			return fmt.Errorf("failed to encode item %d: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, e.ID, string(itemJSON), vector.Encode(vec), e.AugDesc); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
