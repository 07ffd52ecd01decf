// Package strpool provides the process-wide deduplicating string table.
// Paths repeat heavily (shared directory prefixes), so the index stores
// 32-bit ids instead of strings; equality on ids replaces string compares.
package strpool

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/types"
)

const (
	shardCount = 32
	shardBits  = 5
	seqBits    = 31 - shardBits
	// maxSeq caps each shard; the combined id space stays below 2^31.
	maxSeq = 1<<seqBits - 1
)

// shard is one slice of the pool. Readers take the RLock; interning a new
// string takes the write lock with a double-check, the same shape as a
// single-lock pool but with 1/32 of the contention.
type shard struct {
	mu      sync.RWMutex
	lookup  map[string]uint32 // canonical string -> sequence
	strings []string          // sequence -> canonical string; [0] is ""
	bytes   int64
}

// Pool is a bidirectional string <-> id table. Ids are stable for the life
// of the pool; id 0 always resolves to the empty string.
type Pool struct {
	shards [shardCount]shard
}

// New creates an empty pool.
func New() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i].lookup = make(map[string]uint32)
		// Sequence 0 is the empty-string placeholder in every shard so any
		// id with a zero sequence decodes to "".
		p.shards[i].strings = []string{""}
	}
	return p
}

func packID(shardIdx int, seq uint32) types.StringID {
	return types.StringID(uint32(shardIdx)<<seqBits | seq)
}

func unpackID(id types.StringID) (shardIdx int, seq uint32) {
	return int(uint32(id) >> seqBits), uint32(id) & maxSeq
}

func (p *Pool) shardFor(s string) *shard {
	return &p.shards[xxhash.Sum64String(s)&(shardCount-1)]
}

// Intern canonicalizes s (ASCII lowercase) and returns its id, adding it to
// the pool if absent. Interning the same canonical bytes always returns the
// same id, across goroutines.
func (p *Pool) Intern(s string) (types.StringID, error) {
	return p.intern(lowerASCII(s))
}

// InternBytes is Intern for a byte span. On a cache hit for
// already-canonical bytes it performs no allocation.
func (p *Pool) InternBytes(b []byte) (types.StringID, error) {
	if hasUpperASCII(b) {
		return p.Intern(string(b))
	}
	if len(b) == 0 {
		return 0, nil
	}
	idx := int(xxhash.Sum64(b) & (shardCount - 1))
	sh := &p.shards[idx]
	sh.mu.RLock()
	// The compiler recognizes map[string(b)] and skips the conversion alloc.
	if seq, ok := sh.lookup[string(b)]; ok {
		sh.mu.RUnlock()
		return packID(idx, seq), nil
	}
	sh.mu.RUnlock()
	return p.intern(string(b))
}

func (p *Pool) intern(canonical string) (types.StringID, error) {
	if canonical == "" {
		return 0, nil
	}
	idx := int(xxhash.Sum64String(canonical) & (shardCount - 1))
	sh := &p.shards[idx]

	sh.mu.RLock()
	if seq, ok := sh.lookup[canonical]; ok {
		sh.mu.RUnlock()
		return packID(idx, seq), nil
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if seq, ok := sh.lookup[canonical]; ok {
		return packID(idx, seq), nil
	}
	if len(sh.strings) > maxSeq {
		return 0, fferrors.Newf(fferrors.KindPoolExhausted, "intern",
			"string pool shard %d is full (%d entries)", idx, len(sh.strings))
	}
	seq := uint32(len(sh.strings))
	sh.strings = append(sh.strings, canonical)
	sh.lookup[canonical] = seq
	sh.bytes += int64(len(canonical))
	return packID(idx, seq), nil
}

// Lookup returns the id for s without interning it.
func (p *Pool) Lookup(s string) (types.StringID, bool) {
	canonical := lowerASCII(s)
	if canonical == "" {
		return 0, true
	}
	idx := int(xxhash.Sum64String(canonical) & (shardCount - 1))
	sh := &p.shards[idx]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if seq, ok := sh.lookup[canonical]; ok {
		return packID(idx, seq), true
	}
	return 0, false
}

// LookupBytes is Lookup for a byte span; zero-allocation for canonical
// input.
func (p *Pool) LookupBytes(b []byte) (types.StringID, bool) {
	if hasUpperASCII(b) {
		return p.Lookup(string(b))
	}
	if len(b) == 0 {
		return 0, true
	}
	idx := int(xxhash.Sum64(b) & (shardCount - 1))
	sh := &p.shards[idx]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if seq, ok := sh.lookup[string(b)]; ok {
		return packID(idx, seq), true
	}
	return 0, false
}

// Get returns the canonical string for id. Unknown ids return "".
func (p *Pool) Get(id types.StringID) string {
	idx, seq := unpackID(id)
	if idx >= shardCount {
		return ""
	}
	sh := &p.shards[idx]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if int(seq) >= len(sh.strings) {
		return ""
	}
	return sh.strings[seq]
}

// Stats reports the interned string count and approximate memory footprint.
type Stats struct {
	Count       int
	ApproxBytes int64
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	var st Stats
	for i := range p.shards {
		sh := &p.shards[i]
		sh.mu.RLock()
		st.Count += len(sh.strings) - 1 // placeholder excluded
		st.ApproxBytes += sh.bytes
		sh.mu.RUnlock()
	}
	return st
}

// NormalizePath canonicalizes a filesystem path for interning: ASCII
// lowercase with the OS-native separator. All paths in the index, trie and
// persistent store use this form.
func NormalizePath(path string) string {
	return lowerASCII(filepath.Clean(filepath.FromSlash(path)))
}

func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			return strings.ToLower(s)
		}
	}
	return s
}

func hasUpperASCII(b []byte) bool {
	for _, c := range b {
		if c >= 'A' && c <= 'Z' {
			return true
		}
	}
	return false
}

var (
	defaultMu   sync.RWMutex
	defaultPool = New()
)

// Default returns the process-wide pool. It must be treated as an
// explicitly-managed resource: reset it only between test runs, never while
// an index references its ids.
func Default() *Pool {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultPool
}

// ResetDefault discards the process-wide pool. Ids issued before the reset
// are invalid afterwards; intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultPool = New()
}
