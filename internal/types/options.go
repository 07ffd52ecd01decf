package types

import (
	"runtime"
	"time"
)

// IndexingOptions controls a single indexing run.
type IndexingOptions struct {
	// Roots are the starting directories. Empty means no work.
	Roots []string

	// ExcludedPaths rejects entries by path prefix, bare segment name, or
	// doublestar glob pattern.
	ExcludedPaths []string

	// ExcludedExtensions rejects files by extension (leading dot optional,
	// case-insensitive).
	ExcludedExtensions []string

	IncludeHidden  bool
	IncludeSystem  bool
	FollowSymlinks bool

	// MaxDepth bounds traversal depth; 0 indexes the roots only, negative
	// means unbounded.
	MaxDepth int

	// MaxFileSize skips files larger than this many bytes. Zero means
	// unbounded.
	MaxFileSize int64

	// ParallelThreads is the enumerator worker count. Zero picks
	// runtime.NumCPU()*2.
	ParallelThreads int

	// BatchSize is the store insertion batch size. Zero picks 512.
	BatchSize int

	// EnableMonitoring brings up the change monitor once indexing
	// completes.
	EnableMonitoring bool

	// FailIfRunning makes StartIndexing return AlreadyInProgress instead
	// of cancelling a prior run.
	FailIfRunning bool
}

// NewIndexingOptions returns options with the documented defaults.
func NewIndexingOptions(roots ...string) *IndexingOptions {
	return &IndexingOptions{
		Roots:    roots,
		MaxDepth: -1,
	}
}

// Workers resolves the effective worker count.
func (o *IndexingOptions) Workers() int {
	if o.ParallelThreads > 0 {
		return o.ParallelThreads
	}
	return runtime.NumCPU() * 2
}

// EffectiveBatchSize resolves the store insertion batch size.
func (o *IndexingOptions) EffectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 512
}

// ChangeMask selects which change kinds a monitor delivers.
type ChangeMask uint8

const (
	WatchCreated ChangeMask = 1 << iota
	WatchModified
	WatchDeleted
	WatchRenamed

	WatchAll = WatchCreated | WatchModified | WatchDeleted | WatchRenamed
)

// MonitoringOptions controls the change monitor.
type MonitoringOptions struct {
	IncludeSubdirectories bool
	// BufferSize is the raw event channel capacity; on overflow the oldest
	// event is dropped. Zero picks 500.
	BufferSize int
	// DebounceInterval coalesces same-path events. Zero picks 100ms.
	DebounceInterval time.Duration
	Mask             ChangeMask
	ExcludedPaths    []string
}

// NewMonitoringOptions returns options with the documented defaults.
func NewMonitoringOptions() *MonitoringOptions {
	return &MonitoringOptions{
		IncludeSubdirectories: true,
		BufferSize:            500,
		DebounceInterval:      100 * time.Millisecond,
		Mask:                  WatchAll,
	}
}

// EffectiveBufferSize resolves the raw event channel capacity.
func (o *MonitoringOptions) EffectiveBufferSize() int {
	if o.BufferSize > 0 {
		return o.BufferSize
	}
	return 500
}

// EffectiveDebounce resolves the debounce window.
func (o *MonitoringOptions) EffectiveDebounce() time.Duration {
	if o.DebounceInterval > 0 {
		return o.DebounceInterval
	}
	return 100 * time.Millisecond
}

// PersistenceMode selects the durability profile of the on-disk store.
type PersistenceMode int

const (
	// HighPerformance uses WAL journaling with relaxed syncing; Optimize
	// checkpoints the log.
	HighPerformance PersistenceMode = iota
	// Safe uses rollback journaling with full synchronous writes.
	Safe
)

// PersistenceOptions configures the on-disk store.
type PersistenceOptions struct {
	Mode PersistenceMode
	Path string
}
