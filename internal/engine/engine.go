// Package engine is the process facade: it owns the in-memory index, the
// enumerator, the change monitor and the optional persistent store, and
// sequences their lifecycles. Only one indexing run is active at a time.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/monitor"
	"github.com/standardbeagle/fastfind/internal/persist"
	"github.com/standardbeagle/fastfind/internal/query"
	"github.com/standardbeagle/fastfind/internal/scan"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Engine is the single search-engine facade.
type Engine struct {
	pool  *strpool.Pool
	store *index.Store

	persistent *persist.Store

	mu      sync.Mutex
	running *runState
	mon     *monitor.Monitor

	subMu       sync.RWMutex
	progressFns []func(types.IndexingProgress)
	searchFns   []func(types.SearchProgress)
	changeFns   []func(types.FileChange)

	stats statsState
}

type runState struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the engine at construction.
type Option func(*Engine)

// WithPool substitutes the string pool (tests use isolated pools).
func WithPool(pool *strpool.Pool) Option {
	return func(e *Engine) {
		e.pool = pool
		e.store = index.New(pool)
	}
}

// WithPersistence attaches an on-disk store. Init happens at first use.
func WithPersistence(opts types.PersistenceOptions) Option {
	return func(e *Engine) {
		e.persistent = persist.Open(opts)
	}
}

// New creates an engine over the process-wide string pool.
func New(opts ...Option) *Engine {
	pool := strpool.Default()
	e := &Engine{
		pool:  pool,
		store: index.New(pool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the in-memory index for direct reads.
func (e *Engine) Store() *index.Store { return e.store }

// OnProgress subscribes to indexing progress events.
func (e *Engine) OnProgress(fn func(types.IndexingProgress)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.progressFns = append(e.progressFns, fn)
}

// OnSearchProgress subscribes to search progress events.
func (e *Engine) OnSearchProgress(fn func(types.SearchProgress)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.searchFns = append(e.searchFns, fn)
}

// OnFileChanged subscribes to applied change events from the monitor.
func (e *Engine) OnFileChanged(fn func(types.FileChange)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.changeFns = append(e.changeFns, fn)
}

func (e *Engine) emitProgress(p types.IndexingProgress) {
	e.subMu.RLock()
	fns := e.progressFns
	e.subMu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (e *Engine) emitSearchProgress(p types.SearchProgress) {
	e.subMu.RLock()
	fns := e.searchFns
	e.subMu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (e *Engine) emitChange(c types.FileChange) {
	e.subMu.RLock()
	fns := e.changeFns
	e.subMu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// StartIndexing launches an indexing run in the background. A prior active
// run is cancelled and drained first, unless opts.FailIfRunning asks for
// an AlreadyInProgress error instead. Completion is announced through the
// progress events; WaitIndexing blocks until quiescent.
func (e *Engine) StartIndexing(ctx context.Context, opts *types.IndexingOptions) error {
	e.mu.Lock()
	if e.running != nil {
		if opts.FailIfRunning {
			e.mu.Unlock()
			return fferrors.Newf(fferrors.KindAlreadyInProgress, "start_indexing",
				"an indexing run is already active")
		}
		prior := e.running
		e.mu.Unlock()
		prior.cancel()
		<-prior.done
		e.mu.Lock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	state := &runState{cancel: cancel, done: make(chan struct{})}
	e.running = state
	e.mu.Unlock()

	go func() {
		defer close(state.done)
		defer cancel()
		e.runIndexing(runCtx, opts)
		e.mu.Lock()
		if e.running == state {
			e.running = nil
		}
		e.mu.Unlock()
	}()
	return nil
}

// Index runs one indexing pass synchronously.
func (e *Engine) Index(ctx context.Context, opts *types.IndexingOptions) error {
	if err := e.StartIndexing(ctx, opts); err != nil {
		return err
	}
	return e.WaitIndexing(ctx)
}

// WaitIndexing blocks until no indexing run is active.
func (e *Engine) WaitIndexing(ctx context.Context) error {
	e.mu.Lock()
	state := e.running
	e.mu.Unlock()
	if state == nil {
		return nil
	}
	select {
	case <-state.done:
		return nil
	case <-ctx.Done():
		return fferrors.New(fferrors.KindCancelled, "wait_indexing", ctx.Err())
	}
}

// StopIndexing cancels the active run and waits for quiescence.
func (e *Engine) StopIndexing() {
	e.mu.Lock()
	state := e.running
	e.mu.Unlock()
	if state == nil {
		return
	}
	state.cancel()
	<-state.done
}

// runIndexing drives one enumeration into the store and fires the phase
// events. Every record the enumerator emits is in the store before the
// Completed event.
func (e *Engine) runIndexing(ctx context.Context, opts *types.IndexingOptions) {
	started := time.Now()
	e.emitProgress(types.IndexingProgress{Phase: types.PhaseInitializing})

	enum := scan.New(e.pool, opts)
	records := enum.Enumerate(ctx)
	e.emitProgress(types.IndexingProgress{Phase: types.PhaseScanning, Elapsed: time.Since(started)})

	batchSize := opts.EffectiveBatchSize()
	batch := make([]types.EntryRecord, 0, batchSize)
	var indexed int64
	lastPath := ""

	flush := func() {
		for _, rec := range batch {
			e.store.Upsert(rec)
		}
		indexed += int64(len(batch))
		batch = batch[:0]
		e.emitProgress(types.IndexingProgress{
			Phase:       types.PhaseIndexing,
			Count:       indexed,
			Elapsed:     time.Since(started),
			CurrentPath: lastPath,
		})
	}

	for rec := range records {
		batch = append(batch, rec)
		lastPath = e.pool.Get(rec.FullPathID)
		if len(batch) >= batchSize {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}

	e.stats.recordIndexing(indexed, time.Since(started))

	if ctx.Err() != nil {
		e.emitProgress(types.IndexingProgress{
			Phase:   types.PhaseCancelled,
			Count:   indexed,
			Elapsed: time.Since(started),
		})
		return
	}

	// The partial state is kept either way; Failed means no root produced
	// a single record.
	if _, _, errs := enum.Counts(); errs > 0 && indexed == 0 && len(opts.Roots) > 0 {
		e.emitProgress(types.IndexingProgress{
			Phase:   types.PhaseFailed,
			Elapsed: time.Since(started),
		})
		return
	}

	e.emitProgress(types.IndexingProgress{
		Phase:   types.PhaseCompleted,
		Count:   indexed,
		Elapsed: time.Since(started),
	})

	if opts.EnableMonitoring {
		if err := e.EnableMonitoring(types.NewMonitoringOptions(), opts.Roots...); err != nil {
			log.Printf("engine: monitoring unavailable: %v", err)
		}
	}
}

// Refresh re-enumerates the given prefixes: entries below each prefix are
// dropped and the subtree is scanned again with opts.
func (e *Engine) Refresh(ctx context.Context, opts *types.IndexingOptions, prefixes ...string) error {
	for _, prefix := range prefixes {
		for _, id := range e.store.Trie().EntriesUnder(prefix) {
			e.store.Remove(id)
		}
	}
	sub := *opts
	sub.Roots = prefixes
	sub.EnableMonitoring = false
	return e.Index(ctx, &sub)
}

// EnableMonitoring brings up the change monitor over the given roots.
func (e *Engine) EnableMonitoring(mopts *types.MonitoringOptions, roots ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mon != nil {
		return nil
	}
	mon, err := monitor.New(e.store, mopts)
	if err != nil {
		return err
	}
	mon.Subscribe(e.emitChange)
	if err := mon.Start(roots...); err != nil {
		mon.Stop()
		return err
	}
	e.mon = mon
	return nil
}

// Monitor returns the active change monitor, or nil.
func (e *Engine) Monitor() *monitor.Monitor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mon
}

// Search evaluates q over the in-memory index and collects the results.
// Failures are reported in the result's Err with iteration never started.
func (e *Engine) Search(ctx context.Context, q *types.SearchQuery) *types.SearchResult {
	started := time.Now()
	result := &types.SearchResult{}

	compiled, err := query.Compile(q)
	if err != nil {
		result.Err = err
		result.Elapsed = time.Since(started)
		return result
	}

	stream := query.Evaluate(ctx, e.store, compiled)
	for rec := range stream.Records {
		result.Entries = append(result.Entries, e.store.Resolve(rec))
		if len(result.Entries)%1024 == 0 {
			e.emitSearchProgress(types.SearchProgress{
				Matches:   int64(len(result.Entries)),
				Processed: stream.Processed(),
				Elapsed:   time.Since(started),
			})
		}
	}

	result.Total = stream.Matched()
	result.Returned = int64(len(result.Entries))
	result.HasMore = stream.HasMore()
	result.Elapsed = time.Since(started)

	e.stats.recordSearch(result.Elapsed)
	e.emitSearchProgress(types.SearchProgress{
		Matches:   result.Returned,
		Processed: stream.Processed(),
		Elapsed:   result.Elapsed,
		Done:      true,
	})
	return result
}

// SearchStream evaluates q and returns the live record stream for callers
// that want first-match latency; entries resolve through the store.
func (e *Engine) SearchStream(ctx context.Context, q *types.SearchQuery) (*query.Stream, error) {
	compiled, err := query.Compile(q)
	if err != nil {
		return nil, err
	}
	e.stats.recordSearchCount()
	return query.Evaluate(ctx, e.store, compiled), nil
}

// ClearCache drops the in-memory index. Interned strings survive.
func (e *Engine) ClearCache() {
	e.store.Clear()
}

// Optimize compacts the in-memory table and checkpoints the persistent
// store when one is attached.
func (e *Engine) Optimize(ctx context.Context) error {
	e.store.Optimize()
	if e.persistent == nil {
		return nil
	}
	if err := e.persistent.Init(ctx); err != nil {
		return err
	}
	return e.persistent.Optimize(ctx)
}

// Close stops every subsystem. Safe to call more than once.
func (e *Engine) Close() error {
	e.StopIndexing()
	e.mu.Lock()
	mon := e.mon
	e.mon = nil
	e.mu.Unlock()
	if mon != nil {
		mon.Stop()
	}
	if e.persistent != nil {
		return e.persistent.Close()
	}
	return nil
}
