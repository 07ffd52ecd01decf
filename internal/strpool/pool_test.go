package strpool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdempotent(t *testing.T) {
	p := New()

	id1, err := p.Intern("/home/user/Documents")
	require.NoError(t, err)
	id2, err := p.Intern("/home/user/documents")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "case variants must intern to the same id")
	assert.Equal(t, "/home/user/documents", p.Get(id1))

	// Interning the retrieved canonical form is a fixed point.
	id3, err := p.Intern(p.Get(id1))
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
}

func TestEmptyStringIsZero(t *testing.T) {
	p := New()

	id, err := p.Intern("")
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Equal(t, "", p.Get(0))

	id, ok := p.Lookup("")
	assert.True(t, ok)
	assert.Zero(t, id)
}

func TestLookupMissesWithoutInterning(t *testing.T) {
	p := New()

	_, ok := p.Lookup("/never/seen")
	assert.False(t, ok)
	assert.Zero(t, p.Stats().Count)

	_, err := p.Intern("/never/seen")
	require.NoError(t, err)
	id, ok := p.Lookup("/never/seen")
	assert.True(t, ok)
	assert.NotZero(t, id)
}

func TestInternBytes(t *testing.T) {
	p := New()

	idStr, err := p.Intern("readme.md")
	require.NoError(t, err)
	idBytes, err := p.InternBytes([]byte("readme.md"))
	require.NoError(t, err)
	assert.Equal(t, idStr, idBytes)

	idUpper, err := p.InternBytes([]byte("README.MD"))
	require.NoError(t, err)
	assert.Equal(t, idStr, idUpper)
}

func TestInternBytesZeroAllocOnHit(t *testing.T) {
	p := New()
	_, err := p.Intern("vendor/module/file.go")
	require.NoError(t, err)

	needle := []byte("vendor/module/file.go")
	allocs := testing.AllocsPerRun(100, func() {
		if _, err := p.InternBytes(needle); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs, "cache hits must not allocate")
}

func TestConcurrentInternSameID(t *testing.T) {
	p := New()
	const goroutines = 16
	const paths = 200

	ids := make([][]uint32, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids[g] = make([]uint32, paths)
			for i := 0; i < paths; i++ {
				id, err := p.Intern(fmt.Sprintf("/data/dir%03d/file.txt", i))
				if err != nil {
					t.Error(err)
					return
				}
				ids[g][i] = uint32(id)
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		assert.Equal(t, ids[0], ids[g], "every goroutine must see identical ids")
	}
	assert.Equal(t, paths, p.Stats().Count)
}

func TestStats(t *testing.T) {
	p := New()
	_, err := p.Intern("abc")
	require.NoError(t, err)
	_, err = p.Intern("defgh")
	require.NoError(t, err)
	_, err = p.Intern("ABC") // dup after folding
	require.NoError(t, err)

	st := p.Stats()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, int64(8), st.ApproxBytes)
}

func TestNormalizePath(t *testing.T) {
	got := NormalizePath("/Home/User//Docs/")
	assert.Equal(t, "/home/user/docs", got)
}

func TestResetDefault(t *testing.T) {
	id, err := Default().Intern("/transient")
	require.NoError(t, err)
	require.NotZero(t, id)

	ResetDefault()
	_, ok := Default().Lookup("/transient")
	assert.False(t, ok, "reset must discard interned strings")
}
