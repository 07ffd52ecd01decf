package engine

import (
	"sync"
	"time"

	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/match"
)

type statsState struct {
	mu                 sync.RWMutex
	totalIndexed       int64
	totalSearches      int64
	lastIndexDuration  time.Duration
	lastSearchLatency  time.Duration
	totalSearchLatency time.Duration
	timedSearches      int64
}

func (s *statsState) recordIndexing(count int64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalIndexed += count
	s.lastIndexDuration = d
}

func (s *statsState) recordSearch(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSearches++
	s.timedSearches++
	s.lastSearchLatency = d
	s.totalSearchLatency += d
}

func (s *statsState) recordSearchCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSearches++
}

// Stats is the engine-level statistics snapshot.
type Stats struct {
	Index index.Stats
	Pool  struct {
		Count       int
		ApproxBytes int64
	}
	Match match.Stats

	TotalIndexed      int64
	TotalSearches     int64
	LastIndexDuration time.Duration
	LastSearchLatency time.Duration
	AvgSearchLatency  time.Duration
}

// Stats returns a snapshot across the engine's subsystems.
func (e *Engine) Stats() Stats {
	var out Stats
	out.Index = e.store.Stats()
	ps := e.pool.Stats()
	out.Pool.Count = ps.Count
	out.Pool.ApproxBytes = ps.ApproxBytes
	out.Match = match.Counters()

	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()
	out.TotalIndexed = e.stats.totalIndexed
	out.TotalSearches = e.stats.totalSearches
	out.LastIndexDuration = e.stats.lastIndexDuration
	out.LastSearchLatency = e.stats.lastSearchLatency
	if e.stats.timedSearches > 0 {
		out.AvgSearchLatency = e.stats.totalSearchLatency / time.Duration(e.stats.timedSearches)
	}
	return out
}
