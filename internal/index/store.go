// Package index holds the in-memory entry table. The store owns the
// records, the trie owns directory membership, and the string pool owns the
// strings; everything cross-references by id.
package index

import (
	"sync"

	"github.com/standardbeagle/fastfind/internal/pathtrie"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Store is the primary in-memory index: normalized full-path id -> record,
// with a path trie maintained in lock-step for subtree queries.
type Store struct {
	mu      sync.RWMutex
	entries map[types.StringID]types.EntryRecord

	pool *strpool.Pool
	trie *pathtrie.Trie

	totalFiles int64
	totalDirs  int64
	totalBytes int64
	extensions map[types.StringID]int64
}

// New creates an empty store backed by pool.
func New(pool *strpool.Pool) *Store {
	return &Store{
		entries:    make(map[types.StringID]types.EntryRecord),
		pool:       pool,
		trie:       pathtrie.New(),
		extensions: make(map[types.StringID]int64),
	}
}

// Pool returns the backing string pool.
func (s *Store) Pool() *strpool.Pool { return s.pool }

// Trie returns the directory trie. Callers must treat it as read-only.
func (s *Store) Trie() *pathtrie.Trie { return s.trie }

// Add inserts rec. It returns false without modifying anything when an
// entry with the same full-path id already exists; callers that want
// replacement semantics re-issue as Upsert.
func (s *Store) Add(rec types.EntryRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[rec.FullPathID]; exists {
		return false
	}
	s.insertLocked(rec)
	return true
}

// AddBatch inserts a slice of records and returns how many were new.
func (s *Store) AddBatch(recs []types.EntryRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, rec := range recs {
		if _, exists := s.entries[rec.FullPathID]; exists {
			continue
		}
		s.insertLocked(rec)
		added++
	}
	return added
}

// Upsert inserts rec, replacing any existing entry for the same path
// atomically. It returns true when an existing entry was replaced.
func (s *Store) Upsert(rec types.EntryRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.entries[rec.FullPathID]
	if existed {
		s.dropCountersLocked(old)
		// Same key, so the trie membership only moves if the parent dir
		// somehow changed for an identical normalized path; it cannot, and
		// the id is already present at its node.
		s.entries[rec.FullPathID] = rec
		s.bumpCountersLocked(rec)
		return true
	}
	s.insertLocked(rec)
	return false
}

func (s *Store) insertLocked(rec types.EntryRecord) {
	s.entries[rec.FullPathID] = rec
	s.trie.Add(s.pool.Get(rec.DirID), rec.FullPathID)
	s.bumpCountersLocked(rec)
}

func (s *Store) bumpCountersLocked(rec types.EntryRecord) {
	if rec.IsDir() {
		s.totalDirs++
	} else {
		s.totalFiles++
		s.totalBytes += rec.Size
		if rec.ExtID != 0 {
			s.extensions[rec.ExtID]++
		}
	}
}

func (s *Store) dropCountersLocked(rec types.EntryRecord) {
	if rec.IsDir() {
		s.totalDirs--
	} else {
		s.totalFiles--
		s.totalBytes -= rec.Size
		if rec.ExtID != 0 {
			if s.extensions[rec.ExtID]--; s.extensions[rec.ExtID] <= 0 {
				delete(s.extensions, rec.ExtID)
			}
		}
	}
}

// Remove deletes the entry with the given full-path id.
func (s *Store) Remove(id types.StringID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.entries[id]
	if !exists {
		return false
	}
	delete(s.entries, id)
	s.trie.Remove(s.pool.Get(rec.DirID), id)
	s.dropCountersLocked(rec)
	return true
}

// RemovePath deletes the entry stored under path (normalized before
// lookup).
func (s *Store) RemovePath(path string) bool {
	id, ok := s.pool.Lookup(strpool.NormalizePath(path))
	if !ok || id == 0 {
		return false
	}
	return s.Remove(id)
}

// Get returns the record for id.
func (s *Store) Get(id types.StringID) (types.EntryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entries[id]
	return rec, ok
}

// GetPath returns the record stored under path.
func (s *Store) GetPath(path string) (types.EntryRecord, bool) {
	id, ok := s.pool.Lookup(strpool.NormalizePath(path))
	if !ok || id == 0 {
		return types.EntryRecord{}, false
	}
	return s.Get(id)
}

// Contains reports whether path is indexed.
func (s *Store) Contains(path string) bool {
	_, ok := s.GetPath(path)
	return ok
}

// Count returns the number of indexed entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns a snapshot of every indexed full-path id. The snapshot is
// cheap (4 bytes per entry) and lets scans proceed without holding the
// store lock.
func (s *Store) IDs() []types.StringID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.StringID, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}

// EntriesInDir returns the records in dir; with recursive set it covers the
// whole subtree.
func (s *Store) EntriesInDir(dir string, recursive bool) []types.EntryRecord {
	var ids []types.StringID
	if recursive {
		ids = s.trie.EntriesUnder(dir)
	} else {
		ids = s.trie.EntriesIn(dir)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.EntryRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.entries[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Clear discards every entry. Pool ids remain valid.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[types.StringID]types.EntryRecord)
	s.trie.Clear()
	s.totalFiles = 0
	s.totalDirs = 0
	s.totalBytes = 0
	s.extensions = make(map[types.StringID]int64)
}

// Resolve expands a record into a caller-facing Entry.
func (s *Store) Resolve(rec types.EntryRecord) types.Entry {
	return ResolveWith(s.pool, rec)
}

// Stats describes the indexed population.
type Stats struct {
	TotalEntries int
	TotalFiles   int64
	TotalDirs    int64
	TotalBytes   int64
	// Extensions maps extension (with leading dot, lowercased) to file
	// count.
	Extensions map[string]int64
}

// Stats returns a copy of the store counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ext := make(map[string]int64, len(s.extensions))
	for id, n := range s.extensions {
		ext[s.pool.Get(id)] = n
	}
	return Stats{
		TotalEntries: len(s.entries),
		TotalFiles:   s.totalFiles,
		TotalDirs:    s.totalDirs,
		TotalBytes:   s.totalBytes,
		Extensions:   ext,
	}
}

// Optimize compacts the entry table after heavy churn. Map shrinking in Go
// only happens on reallocation, so every call rebuilds the map at its
// current size.
func (s *Store) Optimize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := make(map[types.StringID]types.EntryRecord, len(s.entries))
	for id, rec := range s.entries {
		rebuilt[id] = rec
	}
	s.entries = rebuilt
}
