package persist

import (
	"context"
	"database/sql"
	"time"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/types"
)

const insertSQL = `
INSERT INTO entries (full_path, name, dir, ext, size, created, modified, accessed, attr, volume)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertSQL = insertSQL + `
ON CONFLICT(full_path) DO UPDATE SET
	name = excluded.name,
	dir = excluded.dir,
	ext = excluded.ext,
	size = excluded.size,
	created = excluded.created,
	modified = excluded.modified,
	accessed = excluded.accessed,
	attr = excluded.attr,
	volume = excluded.volume`

func insertArgs(e types.Entry) []any {
	return []any{
		normalizeKey(e.FullPath), e.Name, e.Dir, e.Extension,
		e.Size, e.Created.Unix(), e.Modified.Unix(), e.Accessed.Unix(),
		int64(e.Attr), int64(e.Volume),
	}
}

// Add inserts a new entry. Adding an existing path is a logical no-op and
// returns false.
func (s *Store) Add(ctx context.Context, e types.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, insertSQL+` ON CONFLICT(full_path) DO NOTHING`, insertArgs(e)...)
	if err != nil {
		return false, classify("add", err)
	}
	n, _ := res.RowsAffected()
	s.count += n
	return n > 0, nil
}

// Update upserts an entry keyed on its normalized full path.
func (s *Store) Update(ctx context.Context, e types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	existed, err := s.existsLocked(ctx, normalizeKey(e.FullPath))
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, insertArgs(e)...); err != nil {
		return classify("update", err)
	}
	if !existed {
		s.count++
	}
	return nil
}

// AddBatch inserts entries in one transaction. Above the bulk threshold
// the FTS sync triggers are dropped for the duration and the index is
// rebuilt at the end, which is dramatically cheaper for initial loads.
func (s *Store) AddBatch(ctx context.Context, entries []types.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}

	bulk := len(entries) > bulkFTSThreshold

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("add_batch", err)
	}
	defer tx.Rollback()

	if bulk {
		if _, err := tx.ExecContext(ctx, dropTriggerDDL); err != nil {
			return 0, classify("add_batch", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, classify("add_batch", err)
	}
	defer stmt.Close()

	var before int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&before); err != nil {
		return 0, classify("add_batch", err)
	}

	for i := range entries {
		if i%1024 == 0 && ctx.Err() != nil {
			return 0, fferrors.New(fferrors.KindCancelled, "add_batch", ctx.Err())
		}
		if _, err := stmt.ExecContext(ctx, insertArgs(entries[i])...); err != nil {
			return 0, classify("add_batch", err)
		}
	}

	if bulk {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entries_fts(entries_fts) VALUES ('rebuild')`); err != nil {
			return 0, classify("add_batch", err)
		}
		if _, err := tx.ExecContext(ctx, triggerDDL); err != nil {
			return 0, classify("add_batch", err)
		}
	}

	var after int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&after); err != nil {
		return 0, classify("add_batch", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, classify("add_batch", err)
	}
	s.count += after - before
	return after - before, nil
}

// Remove deletes the entry for path. Removing an absent path returns
// false.
func (s *Store) Remove(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE full_path = ?`, normalizeKey(path))
	if err != nil {
		return false, classify("remove", err)
	}
	n, _ := res.RowsAffected()
	s.count -= n
	return n > 0, nil
}

// RemoveBatch deletes a set of paths in one transaction and returns how
// many rows went away.
func (s *Store) RemoveBatch(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("remove_batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM entries WHERE full_path = ?`)
	if err != nil {
		return 0, classify("remove_batch", err)
	}
	defer stmt.Close()

	var removed int64
	for _, path := range paths {
		res, err := stmt.ExecContext(ctx, normalizeKey(path))
		if err != nil {
			return 0, classify("remove_batch", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	if err := tx.Commit(); err != nil {
		return 0, classify("remove_batch", err)
	}
	s.count -= removed
	return removed, nil
}

const selectCols = `full_path, name, dir, ext, size, created, modified, accessed, attr, volume`

func scanEntry(row interface{ Scan(...any) error }) (types.Entry, error) {
	var e types.Entry
	var created, modified, accessed, attr, volume int64
	err := row.Scan(&e.FullPath, &e.Name, &e.Dir, &e.Extension,
		&e.Size, &created, &modified, &accessed, &attr, &volume)
	if err != nil {
		return types.Entry{}, err
	}
	e.Created = time.Unix(created, 0).UTC()
	e.Modified = time.Unix(modified, 0).UTC()
	e.Accessed = time.Unix(accessed, 0).UTC()
	e.Attr = types.AttrBits(attr)
	e.Volume = byte(volume)
	return e, nil
}

// Get returns the stored entry for path.
func (s *Store) Get(ctx context.Context, path string) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM entries WHERE full_path = ?`, normalizeKey(path))
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return types.Entry{}, fferrors.Newf(fferrors.KindNotFound, "get", "no entry for path").WithPath(path)
	}
	if err != nil {
		return types.Entry{}, classify("get", err)
	}
	return e, nil
}

// Exists reports whether path has a committed row.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.existsLocked(ctx, normalizeKey(path))
}

func (s *Store) existsLocked(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE full_path = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, classify("exists", err)
	}
	return true, nil
}

// Clear removes every row and resets the FTS index.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return classify("clear", err)
	}
	s.count = 0
	return nil
}

// All streams every committed entry, for warm restarts.
func (s *Store) All(ctx context.Context, fn func(types.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectCols+` FROM entries`)
	if err != nil {
		return classify("all", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return classify("all", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return classify("all", rows.Err())
}
