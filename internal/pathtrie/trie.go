// Package pathtrie implements a segment-keyed prefix tree over normalized
// directory paths. Each node holds the ids of the entries that live directly
// in that directory, which makes subtree queries a walk plus a collect
// instead of a full-table scan.
package pathtrie

import (
	"strings"
	"sync"

	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

type node struct {
	children map[string]*node
	entries  map[types.StringID]struct{}
}

func newNode() *node {
	return &node{}
}

func (n *node) empty() bool {
	return len(n.children) == 0 && len(n.entries) == 0
}

// Trie maps directory paths to entry-id sets. Reads take a shared lock;
// the remove-and-prune path is single-writer under the exclusive lock.
type Trie struct {
	mu    sync.RWMutex
	root  *node
	count int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// segments splits a normalized path into its trie key parts. The empty
// path and the filesystem root both map to the root node.
func segments(path string) []string {
	path = strpool.NormalizePath(path)
	path = strings.Trim(path, "/\\")
	if path == "" || path == "." {
		return nil
	}
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// Add records id at the directory dir. It returns false when the id was
// already present at that node.
func (t *Trie) Add(dir string, id types.StringID) bool {
	segs := segments(dir)

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for _, seg := range segs {
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			n.children[seg] = child
		}
		n = child
	}
	if n.entries == nil {
		n.entries = make(map[types.StringID]struct{})
	}
	if _, exists := n.entries[id]; exists {
		return false
	}
	n.entries[id] = struct{}{}
	t.count++
	return true
}

// Remove deletes id from the node for dir and prunes any ancestors left
// empty. It returns false when the id was not present.
func (t *Trie) Remove(dir string, id types.StringID) bool {
	segs := segments(dir)

	t.mu.Lock()
	defer t.mu.Unlock()

	// Record the walk so pruning can unwind it.
	path := make([]*node, 0, len(segs)+1)
	n := t.root
	path = append(path, n)
	for _, seg := range segs {
		child, ok := n.children[seg]
		if !ok {
			return false
		}
		n = child
		path = append(path, n)
	}
	if _, exists := n.entries[id]; !exists {
		return false
	}
	delete(n.entries, id)
	t.count--

	// Prune empty interior nodes bottom-up; the root is never removed.
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].empty() {
			break
		}
		delete(path[i-1].children, segs[i-1])
	}
	return true
}

// walk locates the node for a directory path, or nil.
func (t *Trie) walk(dir string) *node {
	n := t.root
	for _, seg := range segments(dir) {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// EntriesIn returns the ids recorded directly at dir.
func (t *Trie) EntriesIn(dir string) []types.StringID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.walk(dir)
	if n == nil {
		return nil
	}
	out := make([]types.StringID, 0, len(n.entries))
	for id := range n.entries {
		out = append(out, id)
	}
	return out
}

// EntriesUnder returns every id in the subtree rooted at prefix, including
// the prefix node itself.
func (t *Trie) EntriesUnder(prefix string) []types.StringID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.walk(prefix)
	if n == nil {
		return nil
	}
	var out []types.StringID
	collect(n, &out)
	return out
}

func collect(n *node, out *[]types.StringID) {
	for id := range n.entries {
		*out = append(*out, id)
	}
	for _, child := range n.children {
		collect(child, out)
	}
}

// Contains reports whether the trie has a node for prefix.
func (t *Trie) Contains(prefix string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.walk(prefix) != nil
}

// CountUnder returns the number of ids in the subtree rooted at prefix.
func (t *Trie) CountUnder(prefix string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.walk(prefix)
	if n == nil {
		return 0
	}
	return countNode(n)
}

func countNode(n *node) int {
	total := len(n.entries)
	for _, child := range n.children {
		total += countNode(child)
	}
	return total
}

// Count returns the total number of recorded ids.
func (t *Trie) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Clear discards all nodes.
func (t *Trie) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = newNode()
	t.count = 0
}
