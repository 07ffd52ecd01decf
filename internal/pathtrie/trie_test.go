package pathtrie

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/fastfind/internal/types"
)

func TestAddAndEntriesIn(t *testing.T) {
	tr := New()

	assert.True(t, tr.Add("/a/b", 1))
	assert.True(t, tr.Add("/a/b", 2))
	assert.False(t, tr.Add("/a/b", 1), "re-adding the same id is a no-op")
	assert.True(t, tr.Add("/a", 3))

	assert.ElementsMatch(t, []types.StringID{1, 2}, tr.EntriesIn("/a/b"))
	assert.ElementsMatch(t, []types.StringID{3}, tr.EntriesIn("/a"))
	assert.Empty(t, tr.EntriesIn("/a/b/c"))
	assert.Equal(t, 3, tr.Count())
}

func TestEntriesUnder(t *testing.T) {
	tr := New()
	tr.Add("/a", 1)
	tr.Add("/a/b", 2)
	tr.Add("/a/b/c", 3)
	tr.Add("/d", 4)

	assert.ElementsMatch(t, []types.StringID{1, 2, 3}, tr.EntriesUnder("/a"))
	assert.ElementsMatch(t, []types.StringID{2, 3}, tr.EntriesUnder("/a/b"))
	assert.ElementsMatch(t, []types.StringID{1, 2, 3, 4}, tr.EntriesUnder("/"))
	assert.Nil(t, tr.EntriesUnder("/missing"))
}

func TestRemovePrunesEmptyAncestors(t *testing.T) {
	tr := New()
	tr.Add("/a/b/c", 7)

	assert.True(t, tr.Contains("/a/b/c"))
	assert.True(t, tr.Remove("/a/b/c", 7))
	assert.False(t, tr.Remove("/a/b/c", 7))

	assert.False(t, tr.Contains("/a/b/c"), "empty leaf must be pruned")
	assert.False(t, tr.Contains("/a/b"))
	assert.False(t, tr.Contains("/a"))
	assert.Zero(t, tr.Count())
	assert.Zero(t, tr.CountUnder("/a"))
}

func TestRemoveKeepsPopulatedAncestors(t *testing.T) {
	tr := New()
	tr.Add("/a", 1)
	tr.Add("/a/b", 2)

	tr.Remove("/a/b", 2)
	assert.True(t, tr.Contains("/a"))
	assert.False(t, tr.Contains("/a/b"))
	assert.Equal(t, 1, tr.Count())
}

func TestCountUnder(t *testing.T) {
	tr := New()
	tr.Add("/x", 1)
	tr.Add("/x/y", 2)
	tr.Add("/x/y", 3)
	tr.Add("/z", 4)

	assert.Equal(t, 3, tr.CountUnder("/x"))
	assert.Equal(t, 2, tr.CountUnder("/x/y"))
	assert.Equal(t, 4, tr.CountUnder("/"))
	assert.Zero(t, tr.CountUnder("/nope"))
}

func TestCaseInsensitiveSegments(t *testing.T) {
	tr := New()
	tr.Add("/Data/Logs", 1)

	assert.ElementsMatch(t, []types.StringID{1}, tr.EntriesIn("/data/logs"))
	assert.True(t, tr.Contains("/DATA"))
}

func TestClear(t *testing.T) {
	tr := New()
	tr.Add("/a", 1)
	tr.Add("/b/c", 2)

	tr.Clear()
	assert.Zero(t, tr.Count())
	assert.False(t, tr.Contains("/a"))
	assert.True(t, tr.Add("/a", 1), "trie must be reusable after Clear")
}

func TestRootLevelEntries(t *testing.T) {
	tr := New()
	tr.Add("/", 9)

	assert.ElementsMatch(t, []types.StringID{9}, tr.EntriesIn("/"))
	assert.Equal(t, 1, tr.CountUnder("/"))
}
