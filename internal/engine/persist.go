package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/persist"
	"github.com/standardbeagle/fastfind/internal/types"
)

const saveBatchSize = 8192

// Save checkpoints the in-memory index to the persistent store. The
// resolver and the writer run concurrently: record resolution is CPU-bound
// on the pool while the bulk insert is I/O-bound.
func (e *Engine) Save(ctx context.Context) error {
	if e.persistent == nil {
		return fferrors.Newf(fferrors.KindNotInitialized, "save", "no persistent store configured")
	}
	if err := e.persistent.Init(ctx); err != nil {
		return err
	}
	if err := e.persistent.Clear(ctx); err != nil {
		return err
	}

	batches := make(chan []types.Entry, 2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		ids := e.store.IDs()
		batch := make([]types.Entry, 0, saveBatchSize)
		for _, id := range ids {
			rec, ok := e.store.Get(id)
			if !ok {
				continue
			}
			batch = append(batch, e.store.Resolve(rec))
			if len(batch) == saveBatchSize {
				select {
				case batches <- batch:
				case <-gctx.Done():
					return gctx.Err()
				}
				batch = make([]types.Entry, 0, saveBatchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for batch := range batches {
			if _, err := e.persistent.AddBatch(gctx, batch); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// Load replaces the in-memory index with the persisted snapshot.
func (e *Engine) Load(ctx context.Context) error {
	if e.persistent == nil {
		return fferrors.Newf(fferrors.KindNotInitialized, "load", "no persistent store configured")
	}
	if err := e.persistent.Init(ctx); err != nil {
		return err
	}

	e.store.Clear()
	return e.persistent.All(ctx, func(entry types.Entry) error {
		rec, err := recordFromEntry(e.store, entry)
		if err != nil {
			return err
		}
		e.store.Upsert(rec)
		return nil
	})
}

// recordFromEntry re-interns a persisted entry. The stored form is already
// normalized, so intern hits are the common case on warm restart.
func recordFromEntry(st *index.Store, entry types.Entry) (types.EntryRecord, error) {
	pool := st.Pool()
	fullID, err := pool.Intern(entry.FullPath)
	if err != nil {
		return types.EntryRecord{}, err
	}
	nameID, err := pool.Intern(entry.Name)
	if err != nil {
		return types.EntryRecord{}, err
	}
	dirID, err := pool.Intern(entry.Dir)
	if err != nil {
		return types.EntryRecord{}, err
	}
	var extID types.StringID
	if entry.Extension != "" {
		if extID, err = pool.Intern(entry.Extension); err != nil {
			return types.EntryRecord{}, err
		}
	}
	return types.EntryRecord{
		FullPathID:   fullID,
		NameID:       nameID,
		DirID:        dirID,
		ExtID:        extID,
		Size:         entry.Size,
		CreatedUnix:  entry.Created.Unix(),
		ModifiedUnix: entry.Modified.Unix(),
		AccessedUnix: entry.Accessed.Unix(),
		Attr:         entry.Attr,
		Volume:       entry.Volume,
	}, nil
}

// PersistentStore exposes the attached on-disk store after initializing
// it, or a NotInitialized error when none is configured. Callers use it
// for query pass-through and explicit transactions.
func (e *Engine) PersistentStore(ctx context.Context) (*persist.Store, error) {
	if e.persistent == nil {
		return nil, fferrors.Newf(fferrors.KindNotInitialized, "persistent_store", "no persistent store configured")
	}
	if err := e.persistent.Init(ctx); err != nil {
		return nil, err
	}
	return e.persistent, nil
}
