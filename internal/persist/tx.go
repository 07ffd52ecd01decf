package persist

import (
	"context"
	"database/sql"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Tx is an explicit transaction. Concurrent transactions serialize: the
// store's writer lock is held from Begin until Commit or Rollback, so
// readers outside the transaction always see the last committed snapshot.
// Closing without Commit rolls back.
type Tx struct {
	s     *Store
	tx    *sql.Tx
	delta int64
	done  bool
}

// Begin opens a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, classify("begin", err)
	}
	return &Tx{s: s, tx: tx}, nil
}

// Add inserts an entry inside the transaction.
func (t *Tx) Add(ctx context.Context, e types.Entry) (bool, error) {
	if t.done {
		return false, fferrors.Newf(fferrors.KindInvalidInput, "tx_add", "transaction already finished")
	}
	res, err := t.tx.ExecContext(ctx, insertSQL+` ON CONFLICT(full_path) DO NOTHING`, insertArgs(e)...)
	if err != nil {
		return false, classify("tx_add", err)
	}
	n, _ := res.RowsAffected()
	t.delta += n
	return n > 0, nil
}

// Update upserts an entry inside the transaction.
func (t *Tx) Update(ctx context.Context, e types.Entry) error {
	if t.done {
		return fferrors.Newf(fferrors.KindInvalidInput, "tx_update", "transaction already finished")
	}
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE full_path = ?`,
		normalizeKey(e.FullPath)).Scan(&one)
	existed := err == nil
	if err != nil && err != sql.ErrNoRows {
		return classify("tx_update", err)
	}
	if _, err := t.tx.ExecContext(ctx, upsertSQL, insertArgs(e)...); err != nil {
		return classify("tx_update", err)
	}
	if !existed {
		t.delta++
	}
	return nil
}

// Remove deletes an entry inside the transaction.
func (t *Tx) Remove(ctx context.Context, path string) (bool, error) {
	if t.done {
		return false, fferrors.Newf(fferrors.KindInvalidInput, "tx_remove", "transaction already finished")
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM entries WHERE full_path = ?`, normalizeKey(path))
	if err != nil {
		return false, classify("tx_remove", err)
	}
	n, _ := res.RowsAffected()
	t.delta -= n
	return n > 0, nil
}

// Commit makes the transaction's effects durable and visible.
func (t *Tx) Commit() error {
	if t.done {
		return fferrors.Newf(fferrors.KindInvalidInput, "commit", "transaction already finished")
	}
	t.done = true
	defer t.s.mu.Unlock()
	if err := t.tx.Commit(); err != nil {
		return classify("commit", err)
	}
	t.s.count += t.delta
	return nil
}

// Rollback reverts every change made inside the transaction; the store's
// count returns to its pre-transaction value.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.s.mu.Unlock()
	if err := t.tx.Rollback(); err != nil {
		return classify("rollback", err)
	}
	return nil
}

// Close rolls back unless the transaction committed. Deferred disposal
// therefore never leaves changes half-applied.
func (t *Tx) Close() error {
	return t.Rollback()
}
