// Package testhelpers builds on-disk fixture trees and collects engine
// events for tests.
package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fastfind/internal/types"
)

// WriteTree materializes files under a fresh temp dir. Keys are
// slash-separated relative paths; a trailing slash creates an empty
// directory. Returns the root.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if len(rel) > 0 && rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

// GridTree builds dirs directories of files files each (sub0/file0.txt ...)
// plus a test_marker.log file in each of those directories, and returns the
// root.
func GridTree(t *testing.T, dirs, files int) string {
	t.Helper()
	spec := make(map[string]string, dirs*files)
	for d := 0; d < dirs; d++ {
		for f := 0; f < files; f++ {
			spec[fmt.Sprintf("sub%d/file%d.txt", d, f)] = "x"
		}
		spec[fmt.Sprintf("sub%d/test_marker.log", d)] = "marker"
	}
	return WriteTree(t, spec)
}

// ChangeCollector accumulates FileChange events for assertions.
type ChangeCollector struct {
	mu      sync.Mutex
	changes []types.FileChange
}

// Collect is the subscription callback.
func (c *ChangeCollector) Collect(ch types.FileChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

// Changes returns a snapshot of the collected events.
func (c *ChangeCollector) Changes() []types.FileChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.FileChange, len(c.changes))
	copy(out, c.changes)
	return out
}

// HasKindFor reports whether an event of the given kind was collected for
// path.
func (c *ChangeCollector) HasKindFor(kind types.ChangeKind, path string) bool {
	for _, ch := range c.Changes() {
		if ch.Kind == kind && ch.Path == path {
			return true
		}
	}
	return false
}

// ProgressCollector accumulates indexing progress events.
type ProgressCollector struct {
	mu     sync.Mutex
	events []types.IndexingProgress
}

// Collect is the subscription callback.
func (c *ProgressCollector) Collect(p types.IndexingProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, p)
}

// Phases returns the observed phase sequence.
func (c *ProgressCollector) Phases() []types.IndexingPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.IndexingPhase, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Phase)
	}
	return out
}
