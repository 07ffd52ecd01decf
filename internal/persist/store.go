// Package persist checkpoints the index to a single SQLite file with an
// FTS5 name index, using the CGO-free modernc driver. Writers serialize on
// one connection; readers see the last committed snapshot.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/standardbeagle/fastfind/internal/debug"
	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

const schemaVersion = 1

// bulkFTSThreshold is the batch size above which AddBatch drops the FTS
// sync triggers and rebuilds the index once at the end. The whole batch
// commits in one transaction, so intermediate Count reads only ever see
// committed rows.
const bulkFTSThreshold = 5000

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	full_path TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	dir       TEXT NOT NULL,
	ext       TEXT NOT NULL DEFAULT '',
	size      INTEGER NOT NULL DEFAULT 0,
	created   INTEGER NOT NULL DEFAULT 0,
	modified  INTEGER NOT NULL DEFAULT 0,
	accessed  INTEGER NOT NULL DEFAULT 0,
	attr      INTEGER NOT NULL DEFAULT 0,
	volume    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entries_dir ON entries(dir);
CREATE INDEX IF NOT EXISTS idx_entries_ext ON entries(ext);

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
	name,
	content='entries',
	content_rowid='rowid'
);
`

const triggerDDL = `
CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
	INSERT INTO entries_fts(rowid, name) VALUES (new.rowid, new.name);
END;
CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, name) VALUES ('delete', old.rowid, old.name);
END;
CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, name) VALUES ('delete', old.rowid, old.name);
	INSERT INTO entries_fts(rowid, name) VALUES (new.rowid, new.name);
END;
`

const dropTriggerDDL = `
DROP TRIGGER IF EXISTS entries_ai;
DROP TRIGGER IF EXISTS entries_ad;
DROP TRIGGER IF EXISTS entries_au;
`

// Store is the on-disk index.
type Store struct {
	opts types.PersistenceOptions

	mu          sync.Mutex // serializes writers and the count
	db          *sql.DB
	initialized bool
	count       int64
}

// Open creates a store handle. No I/O happens until Init.
func Open(opts types.PersistenceOptions) *Store {
	return &Store{opts: opts}
}

// Init opens the database, applies pragmas for the configured durability
// mode, and creates or validates the schema. It is idempotent.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	db, err := sql.Open("sqlite", s.opts.Path)
	if err != nil {
		return fferrors.New(fferrors.KindIO, "init", err).WithPath(s.opts.Path)
	}
	// The modernc driver is not safe for concurrent writes on one file;
	// a single connection serializes statements below the Store mutex.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON;"}
	switch s.opts.Mode {
	case types.Safe:
		pragmas = append(pragmas,
			"PRAGMA journal_mode = DELETE;",
			"PRAGMA synchronous = FULL;")
	default:
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
			"PRAGMA wal_autocheckpoint = 0;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return classify("init", err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return classify("init", err)
	}
	if _, err := db.ExecContext(ctx, triggerDDL); err != nil {
		db.Close()
		return classify("init", err)
	}

	var version string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx,
			`INSERT INTO meta(key, value) VALUES ('schema_version', ?)`,
			fmt.Sprint(schemaVersion)); err != nil {
			db.Close()
			return classify("init", err)
		}
	case err != nil:
		db.Close()
		return classify("init", err)
	case version != fmt.Sprint(schemaVersion):
		db.Close()
		return fferrors.Newf(fferrors.KindSchemaMismatch, "init",
			"index file has schema version %s, this build expects %d", version, schemaVersion)
	}

	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		db.Close()
		return classify("init", err)
	}

	s.db = db
	s.count = count
	s.initialized = true
	debug.LogStore("opened %s (%d rows, mode=%d)", s.opts.Path, count, s.opts.Mode)
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.initialized = false
	return err
}

func (s *Store) ready() error {
	if !s.initialized {
		return fferrors.Newf(fferrors.KindNotInitialized, "persist", "store is not initialized")
	}
	return nil
}

// classify maps driver errors onto the engine taxonomy. Busy/locked is
// transient and retryable; corruption is terminal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy"):
		return fferrors.New(fferrors.KindStorageLocked, op, err)
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt"):
		return fferrors.New(fferrors.KindStorageCorrupt, op, err)
	default:
		return fferrors.New(fferrors.KindIO, op, err)
	}
}

// RetryLocked runs fn, retrying with linear backoff while it reports the
// transient locked condition.
func RetryLocked(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !fferrors.IsTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return fferrors.New(fferrors.KindCancelled, "retry", ctx.Err())
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		}
	}
	return err
}

// normalizeKey mirrors the in-memory canonicalization so the two stores
// agree on path identity.
func normalizeKey(path string) string {
	return strpool.NormalizePath(path)
}

// Count returns the committed row count. It tracks transactions: rollback
// restores the pre-transaction value.
func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Vacuum rebuilds the database file to reclaim space.
func (s *Store) Vacuum(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	return classify("vacuum", err)
}

// Optimize checkpoints the WAL (high-performance mode) and lets the FTS
// index merge its segments.
func (s *Store) Optimize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO entries_fts(entries_fts) VALUES ('optimize')`); err != nil {
		return classify("optimize", err)
	}
	if s.opts.Mode == types.HighPerformance {
		if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			return classify("optimize", err)
		}
	}
	return nil
}

// Stats describes the persisted population.
type Stats struct {
	Rows      int64
	FileBytes int64
	Path      string
}

// Stats returns row count and total stored file size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return Stats{}, err
	}
	st := Stats{Path: s.opts.Path, Rows: s.count}
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM entries WHERE attr & 1 = 0`).Scan(&st.FileBytes)
	if err != nil {
		return Stats{}, classify("stats", err)
	}
	return st, nil
}
