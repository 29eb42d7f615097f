package breach

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultCacheTTL is how long a cached range stays valid.
const DefaultCacheTTL = 24 * time.Hour

// SQLiteCache stores range bodies in a SQLite database. Range bodies are
// public data; no password material is stored.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLiteCache opens (or creates) the cache database at path.
func OpenSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("breach: failed to open cache: %w", err)
	}
	// A single connection avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS hibp_ranges (
		prefix     TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("breach: failed to create cache table: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("breach: failed to set cache permissions: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached body for prefix if it has not expired.
func (c *SQLiteCache) Get(ctx context.Context, prefix string) (string, bool, error) {
	var body string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT body, fetched_at FROM hibp_ranges WHERE prefix = ?", prefix).Scan(&body, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("breach: cache lookup failed: %w", err)
	}

	if c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		return "", false, nil
	}
	return body, true, nil
}

// Put stores body for prefix, replacing any previous value.
func (c *SQLiteCache) Put(ctx context.Context, prefix, body string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO hibp_ranges(prefix, body, fetched_at) VALUES(?, ?, ?)
		ON CONFLICT(prefix) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		prefix, body, c.now().Unix())
	if err != nil {
		return fmt.Errorf("breach: cache store failed: %w", err)
	}
	return nil
}

// Purge deletes expired ranges and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, "DELETE FROM hibp_ranges WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("breach: cache purge failed: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
