// Package tilestore is an on-disk cache of fetched tiles backed by SQLite.
package tilestore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/warpdl/warpstream/pkg/fetch"
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("tilestore: closed")

// Store caches tile bytes keyed by locator. Credentials are stripped from
// locators before they are used as keys.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	closed atomic.Bool
}

// Stats describes the cache contents.
type Stats struct {
	Tiles  int
	Bytes  int64
	Hits   int64
	Oldest time.Time
	Newest time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("tilestore: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tilestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("tilestore: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tiles (
		locator TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		size INTEGER NOT NULL,
		data BLOB,
		stored_at INTEGER NOT NULL,
		used_at INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0
	);`)
	if err != nil {
		return fmt.Errorf("tilestore: schema: %w", err)
	}
	if err := migrateUsedAt(db); err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tiles_used_at ON tiles(used_at);`)
	return err
}

// migrateUsedAt adds the used_at column to databases created before it
// existed, seeding it with the write time.
func migrateUsedAt(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('tiles')`)
	if err != nil {
		return fmt.Errorf("tilestore: schema: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("tilestore: schema: %w", err)
		}
		if name == "used_at" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("tilestore: schema: %w", err)
	}
	rows.Close()
	if _, err := db.Exec(`ALTER TABLE tiles ADD COLUMN used_at INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("tilestore: add used_at: %w", err)
	}
	if _, err := db.Exec(`UPDATE tiles SET used_at = stored_at`); err != nil {
		return fmt.Errorf("tilestore: seed used_at: %w", err)
	}
	return nil
}

// Get returns the cached bytes for locator. A digest mismatch is treated as
// a miss and the row is dropped.
func (s *Store) Get(ctx context.Context, locator string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	key := fetch.Redact(locator)
	var data []byte
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT data, digest FROM tiles WHERE locator = ?`, key).Scan(&data, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tilestore: get %s: %w", key, err)
	}
	if digestOf(data) != digest {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tiles WHERE locator = ?`, key); err != nil {
			return nil, false, fmt.Errorf("tilestore: drop corrupt %s: %w", key, err)
		}
		return nil, false, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tiles SET hits = hits + 1, used_at = ? WHERE locator = ?`, s.now().UnixNano(), key); err != nil {
		return nil, false, fmt.Errorf("tilestore: get %s: %w", key, err)
	}
	return data, true, nil
}

// Put stores data for locator, replacing any previous entry.
func (s *Store) Put(ctx context.Context, locator string, data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	key := fetch.Redact(locator)
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tiles (locator, digest, size, data, stored_at, used_at, hits)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(locator) DO UPDATE SET
			digest = excluded.digest,
			size = excluded.size,
			data = excluded.data,
			stored_at = excluded.stored_at,
			used_at = excluded.used_at
	`, key, digestOf(data), len(data), data, now, now)
	if err != nil {
		return fmt.Errorf("tilestore: put %s: %w", key, err)
	}
	return nil
}

// Stats summarizes the cache.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s.closed.Load() {
		return Stats{}, ErrClosed
	}
	var st Stats
	var bytes, hits, oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(size), SUM(hits), MIN(stored_at), MAX(stored_at) FROM tiles
	`).Scan(&st.Tiles, &bytes, &hits, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("tilestore: stats: %w", err)
	}
	st.Bytes, st.Hits = bytes.Int64, hits.Int64
	if oldest.Valid {
		st.Oldest = time.Unix(0, oldest.Int64)
		st.Newest = time.Unix(0, newest.Int64)
	}
	return st, nil
}

// Flush removes every tile and returns how many were removed.
func (s *Store) Flush(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tiles`)
	if err != nil {
		return 0, fmt.Errorf("tilestore: flush: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes the least recently used tiles until at most maxBytes remain
// and returns how many were removed. A tile counts as used when it is stored
// or read.
func (s *Store) Prune(ctx context.Context, maxBytes int64) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tiles WHERE locator IN (
			SELECT locator FROM (
				SELECT locator, SUM(size) OVER (ORDER BY used_at DESC, stored_at DESC, locator) AS running
				FROM tiles
			) WHERE running > ?
		)
	`, maxBytes)
	if err != nil {
		return 0, fmt.Errorf("tilestore: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var _ fetch.Cache = (*Store)(nil)
