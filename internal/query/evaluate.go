package query

import (
	"context"
	"sync/atomic"

	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Stream is a running evaluation. Records carries matches as they are
// found; the counters and HasMore are final once Records is closed.
type Stream struct {
	Records <-chan types.EntryRecord

	processed atomic.Int64
	matched   atomic.Int64
	hasMore   atomic.Bool
}

// Processed returns how many candidate entries were examined.
func (s *Stream) Processed() int64 { return s.processed.Load() }

// Matched returns how many entries passed every predicate before iteration
// stopped; at the result cap this counts the one extra match that set
// HasMore, not every match that remains.
func (s *Stream) Matched() int64 { return s.matched.Load() }

// HasMore reports whether iteration stopped at the result cap with matches
// remaining.
func (s *Stream) HasMore() bool { return s.hasMore.Load() }

// Evaluate runs the compiled query over the store, yielding matches as they
// are found. Cancellation is observed at every yield point.
func Evaluate(ctx context.Context, st *index.Store, c *Compiled) *Stream {
	out := make(chan types.EntryRecord)
	s := &Stream{Records: out}

	go func() {
		defer close(out)

		ids := candidates(st, c)
		pool := st.Pool()
		limit := c.query.MaxResults
		var emitted int

		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			rec, ok := st.Get(id)
			if !ok {
				continue
			}
			s.processed.Add(1)

			if !c.accept(rec, pool.Get(rec.FullPathID), pool.Get(rec.NameID), pool.Get(rec.DirID), pool.Get(rec.ExtID)) {
				continue
			}
			s.matched.Add(1)

			if limit > 0 && emitted >= limit {
				s.hasMore.Store(true)
				return
			}
			select {
			case out <- rec:
				emitted++
			case <-ctx.Done():
				return
			}
		}
	}()
	return s
}

// candidates picks the iteration source: trie subtrees when the query is
// location-bound, the whole store otherwise. The prefix directory's own
// record lives at its parent's trie node, so it is added explicitly.
func candidates(st *index.Store, c *Compiled) []types.StringID {
	prefixes := c.triePrefixes()
	if prefixes == nil {
		return st.IDs()
	}
	seen := make(map[types.StringID]struct{})
	var ids []types.StringID
	add := func(id types.StringID) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, prefix := range prefixes {
		if rec, ok := st.GetPath(prefix); ok {
			add(rec.FullPathID)
		}
		for _, id := range st.Trie().EntriesUnder(prefix) {
			add(id)
		}
	}
	return ids
}

// accept applies the predicate stack in its specified order, cheapest
// first. It must match the behavior of a naive full scan exactly; the trie
// shortcut in candidates only narrows the input, never the semantics.
func (c *Compiled) accept(rec types.EntryRecord, fullPath, name, dir, ext string) bool {
	q := &c.query

	// 1. Location allow-list / base path.
	if len(c.allowList) > 0 {
		hit := false
		for _, prefix := range c.allowList {
			if hasPathPrefix(fullPath, prefix) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if c.basePath != "" {
		if q.IncludeSubdirectories {
			if !hasPathPrefix(fullPath, c.basePath) {
				return false
			}
		} else if dir != c.basePath {
			return false
		}
	}

	// 2. Excluded paths.
	if c.deniedPath(fullPath) {
		return false
	}

	// 3. Kind.
	if rec.IsDir() {
		if !q.IncludeDirectories {
			return false
		}
	} else if !q.IncludeFiles {
		return false
	}

	// 4. Hidden / system bits.
	if rec.IsHidden() && !q.IncludeHidden {
		return false
	}
	if rec.IsSystem() && !q.IncludeSystem {
		return false
	}

	// 5. Extension.
	if c.extension != "" && ext != c.extension {
		return false
	}

	// 6. Size range.
	if !rec.IsDir() {
		if rec.Size < q.MinSize {
			return false
		}
		if q.MaxSize > 0 && rec.Size > q.MaxSize {
			return false
		}
	}

	// 7. Date ranges.
	if !q.CreatedAfter.IsZero() && rec.CreatedUnix < q.CreatedAfter.Unix() {
		return false
	}
	if !q.CreatedBefore.IsZero() && rec.CreatedUnix > q.CreatedBefore.Unix() {
		return false
	}
	if !q.ModifiedAfter.IsZero() && rec.ModifiedUnix < q.ModifiedAfter.Unix() {
		return false
	}
	if !q.ModifiedBefore.IsZero() && rec.ModifiedUnix > q.ModifiedBefore.Unix() {
		return false
	}

	// 8. Attribute masks.
	if q.RequiredAttrs != 0 && !rec.Attr.Has(q.RequiredAttrs) {
		return false
	}
	if q.ExcludedAttrs != 0 && rec.Attr&q.ExcludedAttrs != 0 {
		return false
	}

	// 9. Text.
	target := fullPath
	if q.NameOnly {
		target = name
	}
	return c.textMatch(target)
}
