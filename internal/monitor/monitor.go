// Package monitor keeps the index coherent with the live filesystem. Raw
// fsnotify events flow through a bounded channel (oldest dropped on
// overflow), a single consumer coalesces same-path bursts within the
// debounce window, and applied changes are announced to subscribers.
package monitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/fastfind/internal/debug"
	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/scan"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Monitor subscribes to OS change notifications over a set of roots and
// applies incremental updates to the store.
type Monitor struct {
	store *index.Store
	opts  *types.MonitoringOptions

	watcher *fsnotify.Watcher
	raw     chan fsnotify.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subMu       sync.RWMutex
	subscribers []func(types.FileChange)

	statsMu         sync.RWMutex
	eventsProcessed int64
	eventsDropped   int64
	errorCount      int64
	lastEventTime   time.Time
}

// Stats describes the monitor's activity.
type Stats struct {
	EventsProcessed int64
	EventsDropped   int64
	ErrorCount      int64
	LastEventTime   time.Time
	Active          bool
}

// New creates a monitor bound to store.
func New(store *index.Store, opts *types.MonitoringOptions) (*Monitor, error) {
	if opts == nil {
		opts = types.NewMonitoringOptions()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		store:   store,
		opts:    opts,
		watcher: watcher,
		raw:     make(chan fsnotify.Event, opts.EffectiveBufferSize()),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Subscribe registers a callback invoked after each applied change.
func (m *Monitor) Subscribe(fn func(types.FileChange)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Start installs watches over the roots and begins processing events.
func (m *Monitor) Start(roots ...string) error {
	for _, root := range roots {
		if err := m.addWatches(root); err != nil {
			return err
		}
	}

	m.wg.Add(2)
	go m.pump()
	go m.consume()
	debug.LogWatch("monitor started over %d roots", len(roots))
	return nil
}

// Stop tears the monitor down and waits for its goroutines.
func (m *Monitor) Stop() error {
	m.cancel()
	if err := m.watcher.Close(); err != nil {
		log.Printf("monitor: closing watcher: %v", err)
	}
	m.wg.Wait()
	return nil
}

// addWatches installs a watch on root and, when configured, every
// subdirectory. Unwatchable directories are logged and skipped.
func (m *Monitor) addWatches(root string) error {
	if !m.opts.IncludeSubdirectories {
		return m.watcher.Add(root)
	}

	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if real, err := filepath.EvalSymlinks(path); err == nil {
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true
		}
		if m.excluded(path) {
			return filepath.SkipDir
		}
		if err := m.watcher.Add(path); err != nil {
			log.Printf("monitor: watch %s: %v", path, err)
		}
		return nil
	})
}

func (m *Monitor) excluded(path string) bool {
	normalized := strpool.NormalizePath(path)
	slashed := strings.ReplaceAll(normalized, "\\", "/")
	for _, p := range m.opts.ExcludedPaths {
		if strings.ContainsAny(p, "*?[") {
			if ok, _ := doublestar.Match(p, slashed); ok {
				return true
			}
			// Bare glob patterns also apply to the final segment.
			if ok, _ := doublestar.Match(p, filepath.Base(slashed)); ok {
				return true
			}
			continue
		}
		np := strpool.NormalizePath(p)
		if normalized == np || strings.HasPrefix(normalized, np+"/") ||
			strings.HasPrefix(normalized, np+"\\") || filepath.Base(normalized) == np {
			return true
		}
	}
	return false
}

// pump moves raw watcher events into the bounded channel, dropping the
// oldest event when the consumer falls behind.
func (m *Monitor) pump() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			select {
			case m.raw <- event:
			default:
				select {
				case <-m.raw:
					m.bumpDropped()
				default:
				}
				select {
				case m.raw <- event:
				default:
				}
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			// Transient watcher errors must never kill the monitor.
			log.Printf("monitor: watcher error: %v", err)
			m.bumpErrors()
		}
	}
}

// consume coalesces events within the debounce window and applies them.
func (m *Monitor) consume() {
	defer m.wg.Done()

	pending := make(map[string]fsnotify.Op)
	order := make([]string, 0, 16)
	var deadline <-chan time.Time

	flush := func() {
		for _, path := range order {
			m.apply(path, pending[path])
		}
		pending = make(map[string]fsnotify.Op)
		order = order[:0]
		deadline = nil
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.raw:
			if !ok {
				flush()
				return
			}
			if m.excluded(event.Name) {
				continue
			}
			if _, seen := pending[event.Name]; !seen {
				order = append(order, event.Name)
			}
			pending[event.Name] |= event.Op
			if deadline == nil {
				deadline = time.After(m.opts.EffectiveDebounce())
			}
		case <-deadline:
			flush()
		}
	}
}

// apply translates one coalesced op set into index mutations. Per-path
// errors are logged and swallowed.
func (m *Monitor) apply(path string, op fsnotify.Op) {
	pool := m.store.Pool()

	removed := op&(fsnotify.Remove|fsnotify.Rename) != 0
	if removed {
		if _, err := os.Lstat(path); err == nil {
			// The path exists again (rename target, or rapid
			// delete-recreate); fall through to the upsert path.
			removed = false
		}
	}

	switch {
	case removed:
		kind := types.ChangeDeleted
		if op&fsnotify.Rename != 0 {
			// fsnotify reports a rename on the old path only; the paired
			// create event covers the new path.
			kind = types.ChangeRenamed
		}
		if !m.wants(kind) && !m.wants(types.ChangeDeleted) {
			return
		}
		if !m.store.RemovePath(path) {
			return
		}
		m.bumpProcessed()
		m.notify(types.FileChange{Kind: types.ChangeDeleted, OldPath: path, Path: path, At: time.Now()})

	default:
		kind := types.ChangeModified
		if op&fsnotify.Create != 0 {
			kind = types.ChangeCreated
		}
		if !m.wants(kind) {
			return
		}
		rec, err := scan.Stat(pool, path)
		if err != nil {
			debug.LogWatch("stat %s: %v", path, err)
			m.bumpErrors()
			return
		}
		replaced := m.store.Upsert(rec)
		if replaced && kind == types.ChangeCreated {
			kind = types.ChangeModified
		}
		m.bumpProcessed()
		m.notify(types.FileChange{Kind: kind, Path: path, At: time.Now()})

		// A directory created under a watched tree needs its own watch.
		if rec.IsDir() && m.opts.IncludeSubdirectories && op&fsnotify.Create != 0 {
			if err := m.watcher.Add(path); err != nil {
				log.Printf("monitor: watch new directory %s: %v", path, err)
			}
		}
	}
}

func (m *Monitor) wants(kind types.ChangeKind) bool {
	switch kind {
	case types.ChangeCreated:
		return m.opts.Mask&types.WatchCreated != 0
	case types.ChangeModified:
		return m.opts.Mask&types.WatchModified != 0
	case types.ChangeDeleted:
		return m.opts.Mask&types.WatchDeleted != 0
	case types.ChangeRenamed:
		return m.opts.Mask&types.WatchRenamed != 0
	}
	return false
}

func (m *Monitor) notify(change types.FileChange) {
	m.subMu.RLock()
	subs := m.subscribers
	m.subMu.RUnlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (m *Monitor) bumpProcessed() {
	m.statsMu.Lock()
	m.eventsProcessed++
	m.lastEventTime = time.Now()
	m.statsMu.Unlock()
}

func (m *Monitor) bumpDropped() {
	m.statsMu.Lock()
	m.eventsDropped++
	m.statsMu.Unlock()
}

func (m *Monitor) bumpErrors() {
	m.statsMu.Lock()
	m.errorCount++
	m.statsMu.Unlock()
}

// Stats returns a snapshot of the monitor counters.
func (m *Monitor) Stats() Stats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return Stats{
		EventsProcessed: m.eventsProcessed,
		EventsDropped:   m.eventsDropped,
		ErrorCount:      m.errorCount,
		LastEventTime:   m.lastEventTime,
		Active:          m.ctx.Err() == nil,
	}
}
