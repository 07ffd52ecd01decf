package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
	"github.com/standardbeagle/fastfind/testhelpers"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithPool(strpool.New())}, opts...)
	eng := New(opts...)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func indexTree(t *testing.T, eng *Engine, root string) {
	t.Helper()
	require.NoError(t, eng.Index(context.Background(), types.NewIndexingOptions(root)))
}

// Seed scenario: 10 directories of 10 files each; a case-insensitive
// search for "test" returns exactly the entries whose name contains it.
func TestIndexAndSearchGrid(t *testing.T) {
	root := testhelpers.GridTree(t, 10, 10)
	eng := newEngine(t)
	indexTree(t, eng, root)

	stats := eng.Stats()
	// 100 files + 10 markers + 10 dirs + root.
	assert.Equal(t, int64(110), stats.Index.TotalFiles)
	assert.Equal(t, int64(11), stats.Index.TotalDirs)

	q := types.NewSearchQuery("TEST")
	q.NameOnly = true
	result := eng.Search(context.Background(), q)
	require.NoError(t, result.Err)
	assert.Greater(t, result.Total, int64(0))
	assert.Equal(t, int64(10), result.Total, "one test_marker.log per directory")
	for _, e := range result.Entries {
		assert.Contains(t, strings.ToLower(e.Name), "test")
	}
}

// Seed scenario: extension filter returns only matching entries.
func TestSearchExtensionFilter(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"src/prog.cs":   "c",
		"src/helper.cs": "h",
		"src/readme.md": "r",
	})
	eng := newEngine(t)
	indexTree(t, eng, root)

	q := types.NewSearchQuery("")
	q.ExtensionFilter = ".cs"
	result := eng.Search(context.Background(), q)
	require.NoError(t, result.Err)
	require.Equal(t, int64(2), result.Total)
	for _, e := range result.Entries {
		assert.Equal(t, ".cs", e.Extension)
	}
}

// Seed scenario: base path without subdirectories returns entries whose
// parent is exactly that directory.
func TestSearchBasePathExactDir(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"sub1/a.txt":      "a",
		"sub1/b.txt":      "b",
		"sub1/deep/c.txt": "c",
		"sub2/d.txt":      "d",
	})
	eng := newEngine(t)
	indexTree(t, eng, root)

	sub1 := strpool.NormalizePath(filepath.Join(root, "sub1"))
	q := types.NewSearchQuery("")
	q.BasePath = sub1
	q.IncludeSubdirectories = false
	result := eng.Search(context.Background(), q)
	require.NoError(t, result.Err)

	require.NotEmpty(t, result.Entries)
	for _, e := range result.Entries {
		assert.Equal(t, sub1, e.Dir)
	}
}

func TestSearchInvalidQueryReportsWithoutIterating(t *testing.T) {
	eng := newEngine(t)
	q := types.NewSearchQuery("([")
	q.UseRegex = true
	result := eng.Search(context.Background(), q)
	require.Error(t, result.Err)
	assert.Equal(t, fferrors.KindInvalidInput, fferrors.KindOf(result.Err))
	assert.Empty(t, result.Entries)
}

func TestProgressPhases(t *testing.T) {
	root := testhelpers.GridTree(t, 3, 3)
	eng := newEngine(t)

	collector := &testhelpers.ProgressCollector{}
	eng.OnProgress(collector.Collect)
	indexTree(t, eng, root)

	phases := collector.Phases()
	require.NotEmpty(t, phases)
	assert.Equal(t, types.PhaseInitializing, phases[0])
	assert.Equal(t, types.PhaseCompleted, phases[len(phases)-1])
}

func TestEveryEnumeratedEntryIsStoredBeforeCompleted(t *testing.T) {
	root := testhelpers.GridTree(t, 5, 5)
	eng := newEngine(t)

	var atCompleted int
	eng.OnProgress(func(p types.IndexingProgress) {
		if p.Phase == types.PhaseCompleted {
			atCompleted = eng.Store().Count()
		}
	})
	indexTree(t, eng, root)
	assert.Equal(t, eng.Store().Count(), atCompleted,
		"Completed must fire only after every record reached the store")
}

func TestStartIndexingFailIfRunning(t *testing.T) {
	spec := make(map[string]string)
	for i := 0; i < 2000; i++ {
		spec[fmt.Sprintf("d%02d/f%04d.txt", i%50, i)] = "x"
	}
	root := testhelpers.WriteTree(t, spec)
	eng := newEngine(t)

	first := types.NewIndexingOptions(root)
	require.NoError(t, eng.StartIndexing(context.Background(), first))

	second := types.NewIndexingOptions(root)
	second.FailIfRunning = true
	err := eng.StartIndexing(context.Background(), second)
	if err != nil {
		assert.Equal(t, fferrors.KindAlreadyInProgress, fferrors.KindOf(err))
	} // else the first run already finished; nothing to assert
	require.NoError(t, eng.WaitIndexing(context.Background()))
}

func TestSecondStartCancelsFirst(t *testing.T) {
	root := testhelpers.GridTree(t, 4, 4)
	eng := newEngine(t)

	require.NoError(t, eng.StartIndexing(context.Background(), types.NewIndexingOptions(root)))
	require.NoError(t, eng.StartIndexing(context.Background(), types.NewIndexingOptions(root)))
	require.NoError(t, eng.WaitIndexing(context.Background()))

	// The store reflects a complete run regardless of which run won.
	assert.Equal(t, 4*5+4+1, eng.Store().Count())
}

func TestStopIndexing(t *testing.T) {
	root := testhelpers.GridTree(t, 3, 3)
	eng := newEngine(t)

	require.NoError(t, eng.StartIndexing(context.Background(), types.NewIndexingOptions(root)))
	eng.StopIndexing()
	eng.StopIndexing() // idempotent
}

func TestRefreshPrefix(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"keep/a.txt":    "a",
		"refresh/b.txt": "b",
	})
	eng := newEngine(t)
	indexTree(t, eng, root)

	// Delete a file on disk, then refresh only its subtree.
	refreshDir := filepath.Join(root, "refresh")
	require.NoError(t, os.Remove(filepath.Join(refreshDir, "b.txt")))
	require.NoError(t, eng.Refresh(context.Background(), types.NewIndexingOptions(), refreshDir))

	assert.False(t, eng.Store().Contains(filepath.Join(refreshDir, "b.txt")))
	assert.True(t, eng.Store().Contains(filepath.Join(root, "keep", "a.txt")))
}

func TestClearCache(t *testing.T) {
	root := testhelpers.GridTree(t, 2, 2)
	eng := newEngine(t)
	indexTree(t, eng, root)
	require.NotZero(t, eng.Store().Count())

	eng.ClearCache()
	assert.Zero(t, eng.Store().Count())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := testhelpers.GridTree(t, 4, 6)
	dbPath := filepath.Join(t.TempDir(), "ff.db")

	eng := newEngine(t, WithPersistence(types.PersistenceOptions{Path: dbPath}))
	indexTree(t, eng, root)
	want := snapshot(eng)
	require.NoError(t, eng.Save(context.Background()))

	// A fresh engine over the same file reproduces the entry set.
	eng2 := newEngine(t, WithPersistence(types.PersistenceOptions{Path: dbPath}))
	require.NoError(t, eng2.Load(context.Background()))
	assert.Equal(t, want, snapshot(eng2))
}

// snapshot maps full path -> (size, attr, modified) for comparison.
func snapshot(eng *Engine) map[string]string {
	out := make(map[string]string)
	for _, id := range eng.Store().IDs() {
		rec, ok := eng.Store().Get(id)
		if !ok {
			continue
		}
		e := eng.Store().Resolve(rec)
		out[e.FullPath] = fmt.Sprintf("%d|%d|%d", e.Size, e.Attr, e.Modified.Unix())
	}
	return out
}

func TestSearchStatsAccumulate(t *testing.T) {
	root := testhelpers.GridTree(t, 2, 2)
	eng := newEngine(t)
	indexTree(t, eng, root)

	eng.Search(context.Background(), types.NewSearchQuery("file"))
	eng.Search(context.Background(), types.NewSearchQuery("marker"))

	st := eng.Stats()
	assert.Equal(t, int64(2), st.TotalSearches)
	assert.NotZero(t, st.TotalIndexed)
	assert.NotZero(t, st.LastIndexDuration)
}

func TestSearchStreamFirstMatchIsPrompt(t *testing.T) {
	root := testhelpers.GridTree(t, 10, 10)
	eng := newEngine(t)
	indexTree(t, eng, root)

	start := time.Now()
	stream, err := eng.SearchStream(context.Background(), types.NewSearchQuery("file"))
	require.NoError(t, err)

	select {
	case _, ok := <-stream.Records:
		require.True(t, ok)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("no first match within a second")
	}
	// Drain so the evaluator goroutine exits.
	for range stream.Records {
	}
}

func TestMonitoringAppliesChanges(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{"seed.txt": "s"})
	eng := newEngine(t)
	indexTree(t, eng, root)

	collector := &testhelpers.ChangeCollector{}
	eng.OnFileChanged(collector.Collect)

	mopts := types.NewMonitoringOptions()
	mopts.DebounceInterval = 50 * time.Millisecond
	require.NoError(t, eng.EnableMonitoring(mopts, root))

	newFile := filepath.Join(root, "live.txt")
	require.NoError(t, os.WriteFile(newFile, []byte("live"), 0644))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if eng.Store().Contains(newFile) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, eng.Store().Contains(newFile))
	assert.True(t, collector.HasKindFor(types.ChangeCreated, newFile))
}
