// Package cache provides a local cache of content hashes for fetched
// (revision, bid) pairs, backed by SQLite through the pure-Go
// ncruces/go-sqlite3 driver (which embeds sqlite via wazero, needing no cgo
// toolchain). Only the hash is stored, not the branch content itself; Seen
// reports whether a (revision, bid) key was already recorded with a given
// hash.
package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Cache is a local SQLite-backed cache keyed by (revision, bid), storing an
// opaque content hash per key.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if absent) the cache database at path. Use ":memory:"
// for an ephemeral, test-only cache.
func Open(path string) (*Cache, error) {
	connStr := fmt.Sprintf("file:%s", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("arbor: opening repos cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fetched_revisions (
			revision INTEGER NOT NULL,
			bid      TEXT    NOT NULL,
			hash     TEXT    NOT NULL,
			PRIMARY KEY (revision, bid)
		);
	`)
	if err != nil {
		return fmt.Errorf("arbor: migrating repos cache schema: %w", err)
	}
	return nil
}

// Seen reports whether (revision, bid) was previously fetched with the
// given content hash, meaning the caller may reuse whatever it cached
// alongside that hash instead of calling the remote access layer again.
func (c *Cache) Seen(ctx context.Context, revision int64, bid, hash string) (bool, error) {
	var existing string
	err := c.db.QueryRowContext(ctx,
		`SELECT hash FROM fetched_revisions WHERE revision = ? AND bid = ?`,
		revision, bid).Scan(&existing)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("arbor: querying repos cache: %w", err)
	}
	return existing == hash, nil
}

// Record stores the content hash observed for (revision, bid).
func (c *Cache) Record(ctx context.Context, revision int64, bid, hash string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO fetched_revisions (revision, bid, hash) VALUES (?, ?, ?)
		ON CONFLICT(revision, bid) DO UPDATE SET hash = excluded.hash
	`, revision, bid, hash)
	if err != nil {
		return fmt.Errorf("arbor: recording repos cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
