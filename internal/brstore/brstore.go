// Package brstore implements the branching-info storage backends: an
// opaque (revision -> bytes) key-value store, selected by the
// branching-info.backend configuration key, that the core never inspects directly (the provider alone
// knows its encoding). Two interchangeable backends are provided: a
// directory of per-revision TOML files, and a SQLite table standing in for
// "unversioned revision properties" on the remote target. Both are
// guarded by a gofrs/flock advisory lock around each
// read-modify-write, so two working copies sharing one store serialize
// instead of corrupting a revision's record.
package brstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/arborvc/arbor/internal/types"
)

// Store is the opaque (revision -> bytes) interface the core depends on.
type Store interface {
	// Load returns the bytes stored for rev, or (nil, false) if absent.
	Load(ctx context.Context, rev types.Revnum) ([]byte, bool, error)
	// Save writes bytes for rev, overwriting any prior value under an
	// advisory lock so concurrent writers (e.g. two working copies sharing
	// a directory-backed store) serialize instead of corrupting a revision.
	Save(ctx context.Context, rev types.Revnum, data []byte) error
	Close() error
}

type record struct {
	Rev  int64  `toml:"rev"`
	Data []byte `toml:"data"`
}

// DirStore is the directory-of-per-revision-files backend. Each revision's
// bytes live in "<dir>/<rev>.toml", and a single "<dir>/.lock" file
// arbitrates concurrent writers.
type DirStore struct {
	dir  string
	lock *flock.Flock
}

// OpenDirStore creates dir if absent and returns a Store backed by it.
func OpenDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("arbor: creating branching-info dir %s: %w", dir, err)
	}
	return &DirStore{dir: dir, lock: flock.New(filepath.Join(dir, ".lock"))}, nil
}

func (s *DirStore) revPath(rev types.Revnum) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.toml", rev))
}

func (s *DirStore) Load(ctx context.Context, rev types.Revnum) ([]byte, bool, error) {
	if err := s.lockShared(ctx); err != nil {
		return nil, false, err
	}
	defer s.lock.Unlock()

	raw, err := os.ReadFile(s.revPath(rev))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("arbor: reading branching-info for revision %d: %w", rev, err)
	}
	var rec record
	if err := toml.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("arbor: decoding branching-info for revision %d: %w", rev, err)
	}
	return rec.Data, true, nil
}

func (s *DirStore) Save(ctx context.Context, rev types.Revnum, data []byte) error {
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("arbor: locking branching-info store: %w", err)
	}
	if !locked {
		return fmt.Errorf("arbor: branching-info store is locked by another writer")
	}
	defer s.lock.Unlock()

	rec := record{Rev: int64(rev), Data: data}
	f, err := os.Create(s.revPath(rev))
	if err != nil {
		return fmt.Errorf("arbor: writing branching-info for revision %d: %w", rev, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("arbor: encoding branching-info for revision %d: %w", rev, err)
	}
	return nil
}

func (s *DirStore) lockShared(ctx context.Context) error {
	locked, err := s.lock.TryRLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("arbor: read-locking branching-info store: %w", err)
	}
	if !locked {
		return fmt.Errorf("arbor: branching-info store is exclusively locked")
	}
	return nil
}

func (s *DirStore) Close() error { return nil }

// RevPropStore stands in for "per-revision unversioned properties on the
// target", backed by a local SQLite table rather than an actual remote
// revprop namespace; the core treats both backends identically, as an
// opaque store.
type RevPropStore struct {
	db   *sql.DB
	lock *flock.Flock
}

// OpenRevPropStore opens (creating if absent) a SQLite-backed revprop store
// at path, with its advisory lock file alongside it.
func OpenRevPropStore(path string) (*RevPropStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("arbor: opening revprop store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS branching_info (rev INTEGER PRIMARY KEY, data BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("arbor: migrating revprop store schema: %w", err)
	}
	return &RevPropStore{db: db, lock: flock.New(path + ".lock")}, nil
}

func (s *RevPropStore) Load(ctx context.Context, rev types.Revnum) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM branching_info WHERE rev = ?`, int64(rev)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("arbor: reading revprop store: %w", err)
	}
	return data, true, nil
}

func (s *RevPropStore) Save(ctx context.Context, rev types.Revnum, data []byte) error {
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("arbor: locking revprop store: %w", err)
	}
	if !locked {
		return fmt.Errorf("arbor: revprop store is locked by another writer")
	}
	defer s.lock.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO branching_info (rev, data) VALUES (?, ?)
		ON CONFLICT(rev) DO UPDATE SET data = excluded.data
	`, int64(rev), data)
	if err != nil {
		return fmt.Errorf("arbor: writing revprop store: %w", err)
	}
	return nil
}

func (s *RevPropStore) Close() error { return s.db.Close() }
