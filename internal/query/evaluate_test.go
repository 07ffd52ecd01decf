package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/index"
	"github.com/standardbeagle/fastfind/internal/match"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

type fixture struct {
	pool  *strpool.Pool
	store *index.Store
}

func newFixture(t *testing.T) *fixture {
	pool := strpool.New()
	return &fixture{pool: pool, store: index.New(pool)}
}

func (f *fixture) add(t *testing.T, path string, size int64, attr types.AttrBits, modified time.Time) {
	t.Helper()
	normalized := strpool.NormalizePath(path)
	fullID, err := f.pool.Intern(normalized)
	require.NoError(t, err)

	dir, name := splitPath(normalized)
	dirID, err := f.pool.Intern(dir)
	require.NoError(t, err)
	nameID, err := f.pool.Intern(name)
	require.NoError(t, err)

	var extID types.StringID
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			extID, err = f.pool.Intern(name[i:])
			require.NoError(t, err)
			break
		}
	}
	require.True(t, f.store.Add(types.EntryRecord{
		FullPathID:   fullID,
		NameID:       nameID,
		DirID:        dirID,
		ExtID:        extID,
		Size:         size,
		ModifiedUnix: modified.Unix(),
		CreatedUnix:  modified.Unix(),
		Attr:         attr,
	}))
}

func splitPath(p string) (dir, name string) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			if i == 0 {
				return "/", p[1:]
			}
			return p[:i], p[i+1:]
		}
	}
	return "", p
}

func run(t *testing.T, f *fixture, q *types.SearchQuery) []string {
	t.Helper()
	c, err := Compile(q)
	require.NoError(t, err)
	stream := Evaluate(context.Background(), f.store, c)
	var paths []string
	for rec := range stream.Records {
		paths = append(paths, f.pool.Get(rec.FullPathID))
	}
	return paths
}

func seeded(t *testing.T) *fixture {
	f := newFixture(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.add(t, "/r", 0, types.AttrDirectory, base)
	f.add(t, "/r/sub1", 0, types.AttrDirectory, base)
	f.add(t, "/r/sub2", 0, types.AttrDirectory, base)
	f.add(t, "/r/sub1/test_a.cs", 100, 0, base)
	f.add(t, "/r/sub1/notes.md", 200, 0, base.Add(24*time.Hour))
	f.add(t, "/r/sub2/test_b.cs", 5000, 0, base.Add(48*time.Hour))
	f.add(t, "/r/sub2/archive.zip", 900000, 0, base)
	f.add(t, "/r/.hidden_test", 10, types.AttrHidden, base)
	f.add(t, "/r/sys.bin", 10, types.AttrSystem, base)
	return f
}

func TestSubstringCaseInsensitive(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("TEST")
	got := run(t, f, q)
	// Hidden and system entries are excluded by default.
	assert.ElementsMatch(t, []string{"/r/sub1/test_a.cs", "/r/sub2/test_b.cs"}, got)
}

func TestIncludeHiddenAndSystem(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("test")
	q.IncludeHidden = true
	got := run(t, f, q)
	assert.Contains(t, got, "/r/.hidden_test")

	q2 := types.NewSearchQuery("sys")
	q2.IncludeSystem = true
	got2 := run(t, f, q2)
	assert.Contains(t, got2, "/r/sys.bin")
}

func TestExtensionFilter(t *testing.T) {
	f := seeded(t)
	for _, filter := range []string{".cs", "cs", ".CS"} {
		q := types.NewSearchQuery("")
		q.ExtensionFilter = filter
		got := run(t, f, q)
		assert.ElementsMatch(t, []string{"/r/sub1/test_a.cs", "/r/sub2/test_b.cs"}, got, "filter=%q", filter)
	}
}

func TestBasePathWithoutSubdirectories(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.BasePath = "/r/sub1"
	q.IncludeSubdirectories = false
	got := run(t, f, q)
	assert.ElementsMatch(t, []string{"/r/sub1/test_a.cs", "/r/sub1/notes.md"}, got)
}

func TestBasePathSubtree(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.BasePath = "/r/sub2"
	got := run(t, f, q)
	assert.ElementsMatch(t, []string{"/r/sub2", "/r/sub2/test_b.cs", "/r/sub2/archive.zip"}, got)
}

func TestKindFilters(t *testing.T) {
	f := seeded(t)

	q := types.NewSearchQuery("")
	q.IncludeDirectories = false
	for _, p := range run(t, f, q) {
		rec, _ := f.store.GetPath(p)
		assert.False(t, rec.IsDir(), "%s should be a file", p)
	}

	q2 := types.NewSearchQuery("")
	q2.IncludeFiles = false
	got := run(t, f, q2)
	assert.ElementsMatch(t, []string{"/r", "/r/sub1", "/r/sub2"}, got)
}

func TestSizeRange(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.IncludeDirectories = false
	q.MinSize = 150
	q.MaxSize = 10000
	got := run(t, f, q)
	assert.ElementsMatch(t, []string{"/r/sub1/notes.md", "/r/sub2/test_b.cs"}, got)
}

func TestModifiedRange(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.IncludeDirectories = false
	q.ModifiedAfter = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	got := run(t, f, q)
	assert.ElementsMatch(t, []string{"/r/sub1/notes.md", "/r/sub2/test_b.cs"}, got)
}

func TestWildcardAndRegex(t *testing.T) {
	f := seeded(t)

	q := types.NewSearchQuery("test_?.cs")
	q.NameOnly = true
	assert.ElementsMatch(t, []string{"/r/sub1/test_a.cs", "/r/sub2/test_b.cs"}, run(t, f, q))

	q2 := types.NewSearchQuery(`test_[ab]\.cs$`)
	q2.UseRegex = true
	assert.ElementsMatch(t, []string{"/r/sub1/test_a.cs", "/r/sub2/test_b.cs"}, run(t, f, q2))
}

func TestInvalidRegexFailsAtCompile(t *testing.T) {
	q := types.NewSearchQuery("([unclosed")
	q.UseRegex = true
	_, err := Compile(q)
	require.Error(t, err)
	assert.Equal(t, fferrors.KindInvalidInput, fferrors.KindOf(err))
}

func TestContradictoryRangesFailAtCompile(t *testing.T) {
	q := types.NewSearchQuery("")
	q.MinSize = 100
	q.MaxSize = 50
	_, err := Compile(q)
	require.Error(t, err)
	assert.Equal(t, fferrors.KindInvalidInput, fferrors.KindOf(err))

	q2 := types.NewSearchQuery("")
	q2.ModifiedAfter = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q2.ModifiedBefore = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = Compile(q2)
	require.Error(t, err)
}

func TestMaxResultsAndHasMore(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.MaxResults = 3

	c, err := Compile(q)
	require.NoError(t, err)
	stream := Evaluate(context.Background(), f.store, c)
	var n int
	for range stream.Records {
		n++
	}
	assert.Equal(t, 3, n)
	assert.True(t, stream.HasMore())
}

func TestExcludedPaths(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.ExcludedPaths = []string{"/r/sub2"}
	got := run(t, f, q)
	assert.NotContains(t, got, "/r/sub2/test_b.cs")
	assert.Contains(t, got, "/r/sub1/test_a.cs")

	q2 := types.NewSearchQuery("")
	q2.ExcludedPaths = []string{"**/*.zip"}
	got2 := run(t, f, q2)
	assert.NotContains(t, got2, "/r/sub2/archive.zip")
}

func TestCancellationStopsStream(t *testing.T) {
	f := newFixture(t)
	base := time.Now()
	for i := 0; i < 500; i++ {
		f.add(t, "/big/file"+string(rune('a'+i%26))+string(rune('a'+(i/26)%26))+string(rune('a'+i/676))+".txt", 1, 0, base)
	}

	c, err := Compile(types.NewSearchQuery(""))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream := Evaluate(ctx, f.store, c)
	<-stream.Records
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream.Records:
			if !ok {
				return // closed promptly after cancel
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

// TestEquivalenceWithReferenceScan cross-checks the evaluator against a
// naive scan that applies the documented predicate order directly.
func TestEquivalenceWithReferenceScan(t *testing.T) {
	f := seeded(t)

	queries := []*types.SearchQuery{
		types.NewSearchQuery("test"),
		types.NewSearchQuery(""),
		func() *types.SearchQuery {
			q := types.NewSearchQuery("s")
			q.BasePath = "/r/sub1"
			return q
		}(),
		func() *types.SearchQuery {
			q := types.NewSearchQuery("*.cs")
			q.NameOnly = true
			return q
		}(),
		func() *types.SearchQuery {
			q := types.NewSearchQuery("")
			q.IncludeHidden = true
			q.MinSize = 1
			return q
		}(),
	}

	for qi, q := range queries {
		got := run(t, f, q)

		var want []string
		for _, id := range f.store.IDs() {
			rec, _ := f.store.Get(id)
			if referenceAccept(f, q, rec) {
				want = append(want, f.pool.Get(rec.FullPathID))
			}
		}
		assert.ElementsMatch(t, want, got, "query %d", qi)
	}
}

// referenceAccept is an independent reimplementation of the predicate
// stack used only as a test oracle.
func referenceAccept(f *fixture, q *types.SearchQuery, rec types.EntryRecord) bool {
	fullPath := f.pool.Get(rec.FullPathID)
	name := f.pool.Get(rec.NameID)
	dir := f.pool.Get(rec.DirID)

	if q.BasePath != "" {
		base := strpool.NormalizePath(q.BasePath)
		if q.IncludeSubdirectories {
			if fullPath != base && !hasPrefixSlash(fullPath, base) {
				return false
			}
		} else if dir != base {
			return false
		}
	}
	if rec.IsDir() && !q.IncludeDirectories {
		return false
	}
	if !rec.IsDir() && !q.IncludeFiles {
		return false
	}
	if rec.IsHidden() && !q.IncludeHidden {
		return false
	}
	if rec.IsSystem() && !q.IncludeSystem {
		return false
	}
	if !rec.IsDir() {
		if rec.Size < q.MinSize {
			return false
		}
		if q.MaxSize > 0 && rec.Size > q.MaxSize {
			return false
		}
	}
	target := fullPath
	if q.NameOnly {
		target = name
	}
	switch {
	case q.Text == "":
		return true
	case match.HasWildcards(q.Text):
		return match.MatchWildcard(target, q.Text, q.CaseSensitive)
	default:
		if q.CaseSensitive {
			return match.Contains(target, q.Text)
		}
		return match.ContainsFold(target, q.Text)
	}
}

func hasPrefixSlash(path, prefix string) bool {
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

func TestAttributeMasks(t *testing.T) {
	f := newFixture(t)
	base := time.Now()
	f.add(t, "/m/plain.txt", 1, 0, base)
	f.add(t, "/m/ro.txt", 1, types.AttrReadOnly, base)
	f.add(t, "/m/link", 1, types.AttrSymlink, base)

	q := types.NewSearchQuery("")
	q.RequiredAttrs = types.AttrReadOnly
	assert.ElementsMatch(t, []string{"/m/ro.txt"}, run(t, f, q))

	q2 := types.NewSearchQuery("")
	q2.ExcludedAttrs = types.AttrSymlink
	got := run(t, f, q2)
	assert.NotContains(t, got, "/m/link")
	assert.Contains(t, got, "/m/plain.txt")
}

func TestSearchLocationsAllowList(t *testing.T) {
	f := seeded(t)
	q := types.NewSearchQuery("")
	q.SearchLocations = []string{"/r/sub1", "/r/sub2"}
	got := run(t, f, q)
	assert.NotContains(t, got, "/r")
	assert.Contains(t, got, "/r/sub1/test_a.cs")
	assert.Contains(t, got, "/r/sub2/archive.zip")
}
