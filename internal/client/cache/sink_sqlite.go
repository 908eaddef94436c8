package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"chanfilter/internal/catalog/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	identity    TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_recorded_at ON cache_entries (recorded_at);
`

// SQLiteSink persists entries in a local SQLite file.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteSink{db: db, path: path}, nil
}

func (s *SQLiteSink) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("load cache entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e, err := decodeEntry(payload)
		if err != nil {
			// Skip rows written by an incompatible version.
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Save(ctx context.Context, entry Entry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (identity, payload, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET payload = excluded.payload, recorded_at = excluded.recorded_at`,
		entry.Key.String(), payload, entry.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Delete(ctx context.Context, keys []models.IdentityKey) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM cache_entries WHERE identity = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k.String()); err != nil {
			return fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return tx.Commit()
}

// Count returns the number of persisted rows.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Path returns the database file location.
func (s *SQLiteSink) Path() string {
	return s.path
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
