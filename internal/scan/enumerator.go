// Package scan implements the platform enumerator: a parallel breadth-first
// traversal that streams entry records through a bounded channel. Wide
// top-level directories are dispatched to the shared work queue; deep
// subtrees stay on one worker for cache locality.
package scan

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/fastfind/internal/debug"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

const (
	// outputCapacity bounds the record stream; producers block when the
	// consumer falls behind.
	outputCapacity = 2048

	// queueCapacity bounds the shared directory queue. Overflow falls back
	// to the worker's local stack, so a full queue never deadlocks.
	queueCapacity = 4096

	// shallowDepth is the deepest level still dispatched to the shared
	// queue; anything deeper is traversed inline by the owning worker.
	shallowDepth = 2

	// idleWait is how long an idle worker naps before re-checking for
	// completion.
	idleWait = 100 * time.Millisecond
)

type dirWork struct {
	path  string
	depth int
}

// Enumerator produces entry records for one or more root directories.
type Enumerator struct {
	pool    *strpool.Pool
	opts    *types.IndexingOptions
	filters *filterSet

	scanned atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
}

// New creates an enumerator for the given options.
func New(pool *strpool.Pool, opts *types.IndexingOptions) *Enumerator {
	return &Enumerator{
		pool:    pool,
		opts:    opts,
		filters: newFilterSet(opts),
	}
}

// Counts returns entries emitted, entries skipped by filters, and
// per-entry errors observed so far.
func (e *Enumerator) Counts() (scanned, skipped, errs int64) {
	return e.scanned.Load(), e.skipped.Load(), e.errors.Load()
}

// Enumerate starts the traversal and returns the record stream. The channel
// closes when every root is exhausted or ctx is cancelled. Per-entry errors
// are logged and skipped; they never terminate the stream.
func (e *Enumerator) Enumerate(ctx context.Context) <-chan types.EntryRecord {
	out := make(chan types.EntryRecord, outputCapacity)

	queue := make(chan dirWork, queueCapacity)
	var inFlight atomic.Int64
	var once sync.Once
	done := make(chan struct{})

	finish := func() { once.Do(func() { close(done) }) }

	w := &walker{
		enum:     e,
		ctx:      ctx,
		out:      out,
		queue:    queue,
		inFlight: &inFlight,
		finish:   finish,
		done:     done,
		visited:  &sync.Map{},
	}

	// Seed: emit each root's own record and queue it at depth 0.
	seeded := 0
	for _, root := range e.opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			log.Printf("scan: unusable root %s: %v", root, err)
			e.errors.Add(1)
			continue
		}
		// Stat (not Lstat): a symlinked root still indexes its target tree.
		info, err := os.Stat(abs)
		if err != nil {
			log.Printf("scan: unreadable root %s: %v", abs, err)
			e.errors.Add(1)
			continue
		}
		if !info.IsDir() {
			// A file root is emitted directly.
			if rec, ok := w.record(abs, info); ok {
				w.emit(rec)
			}
			continue
		}
		canonical := abs
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			canonical = resolved
		}
		w.visited.Store(canonical, true)
		if rec, ok := w.record(abs, info); ok {
			w.emit(rec)
		}
		inFlight.Add(1)
		queue <- dirWork{path: abs, depth: 0}
		seeded++
	}

	workers := e.opts.Workers()
	var wg sync.WaitGroup
	if seeded == 0 {
		finish()
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run()
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// walker is the per-run state shared by the worker pool.
type walker struct {
	enum     *Enumerator
	ctx      context.Context
	out      chan<- types.EntryRecord
	queue    chan dirWork
	inFlight *atomic.Int64
	finish   func()
	done     chan struct{}
	visited  *sync.Map
}

// run is the worker loop: drain the local stack first, then the shared
// queue, and declare completion when no work remains anywhere.
func (w *walker) run() {
	var stack []dirWork
	for {
		if len(stack) > 0 {
			work := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			w.process(work, &stack)
			continue
		}

		select {
		case <-w.ctx.Done():
			w.finish()
			return
		case <-w.done:
			return
		case work, ok := <-w.queue:
			if !ok {
				return
			}
			w.process(work, &stack)
		case <-time.After(idleWait):
			if w.inFlight.Load() == 0 && len(w.queue) == 0 {
				w.finish()
				return
			}
		}
	}
}

func (w *walker) process(work dirWork, stack *[]dirWork) {
	w.readDir(work, stack)
	if w.inFlight.Add(-1) == 0 {
		w.finish()
	}
}

// readDir reads one directory in a single OS call batch and handles every
// child: emit, dispatch, or recurse.
func (w *walker) readDir(work dirWork, stack *[]dirWork) {
	if w.ctx.Err() != nil {
		return
	}
	opts := w.enum.opts
	if opts.MaxDepth >= 0 && work.depth >= opts.MaxDepth {
		return
	}

	entries, err := os.ReadDir(work.path)
	if err != nil {
		debug.LogScan("readdir %s: %v", work.path, err)
		w.enum.errors.Add(1)
		return
	}

	for i, de := range entries {
		if i%128 == 0 && w.ctx.Err() != nil {
			return
		}
		w.child(work, de, stack)
	}
}

func (w *walker) child(work dirWork, de os.DirEntry, stack *[]dirWork) {
	name := de.Name()
	fullPath := filepath.Join(work.path, name)
	f := w.enum.filters

	if f.excludesSegment(name) || f.excludesPath(fullPath) {
		w.enum.skipped.Add(1)
		return
	}

	info, err := de.Info()
	if err != nil {
		debug.LogScan("lstat %s: %v", fullPath, err)
		w.enum.errors.Add(1)
		return
	}

	isSymlink := info.Mode()&os.ModeSymlink != 0
	traversePath := fullPath
	if isSymlink {
		if !w.enum.opts.FollowSymlinks {
			// The link itself is still indexed as a record, subject to the
			// same attribute filters as everything else.
			if !f.keep(name, info) {
				w.enum.skipped.Add(1)
				return
			}
			if rec, ok := w.record(fullPath, info); ok {
				w.emit(rec)
			}
			return
		}
		resolved, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			debug.LogScan("resolve %s: %v", fullPath, err)
			w.enum.errors.Add(1)
			return
		}
		target, err := os.Stat(resolved)
		if err != nil {
			w.enum.errors.Add(1)
			return
		}
		info = target
		traversePath = resolved
	}

	if !f.keep(name, info) {
		w.enum.skipped.Add(1)
		return
	}

	rec, ok := w.record(fullPath, info)
	if !ok {
		return
	}

	if info.IsDir() {
		if isVirtualMount(fullPath) {
			w.enum.skipped.Add(1)
			return
		}
		w.emit(rec)
		if isSymlink || w.enum.opts.FollowSymlinks {
			// Cycle guard: only the first path to a canonical directory
			// traverses it.
			if _, seen := w.visited.LoadOrStore(traversePath, true); seen {
				return
			}
		}
		next := dirWork{path: fullPath, depth: work.depth + 1}
		if next.depth <= shallowDepth {
			w.dispatch(next, stack)
		} else {
			// Deep subtree: stay on this worker.
			w.readDir(next, stack)
		}
		return
	}

	w.emit(rec)
}

// dispatch queues shallow work, falling back to the local stack when the
// shared queue is full so producers never deadlock on themselves.
func (w *walker) dispatch(work dirWork, stack *[]dirWork) {
	w.inFlight.Add(1)
	select {
	case w.queue <- work:
	default:
		*stack = append(*stack, work)
	}
}

func (w *walker) emit(rec types.EntryRecord) {
	select {
	case w.out <- rec:
		w.enum.scanned.Add(1)
	case <-w.ctx.Done():
	}
}

func (w *walker) record(fullPath string, info os.FileInfo) (types.EntryRecord, bool) {
	rec, err := BuildRecord(w.enum.pool, fullPath, info)
	if err != nil {
		log.Printf("scan: record %s: %v", fullPath, err)
		w.enum.errors.Add(1)
		return types.EntryRecord{}, false
	}
	return rec, true
}
