package match

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsFoldBasics(t *testing.T) {
	cases := []struct {
		haystack, needle string
		want             bool
	}{
		{"", "", true},
		{"abc", "", true},
		{"", "a", false},
		{"short", "longerneedle", false},
		{"readme.md", "readme", true},
		{"README.MD", "readme", true},
		{"readme.md", "ReadMe", true},
		{"/usr/local/bin/tool", "LOCAL", true},
		{"/usr/local/bin/tool", "loca1", false},
		{"project_test_helper.go", "test", true},
		{"xyz", "xyzz", false},
		{"aaaa", "aa", true},
		{"abcXdefXghi", "xdef", true},
		{"ssßs", "ß", true}, // non-ASCII falls back to folding path
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ContainsFold(tc.haystack, tc.needle),
			"haystack=%q needle=%q", tc.haystack, tc.needle)
	}
}

// TestWordPathEqualsScalarReference is the correctness contract: the
// word-at-a-time scan must agree with the scalar reference on every input.
func TestWordPathEqualsScalarReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := "abcDEFgh._-/XYZ012"

	randString := func(n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		return b.String()
	}

	for i := 0; i < 5000; i++ {
		haystack := randString(rng.Intn(64) + 8)
		var needle string
		if rng.Intn(2) == 0 {
			// Planted needle: slice of the haystack with flipped case.
			start := rng.Intn(len(haystack) - 4)
			end := start + 4 + rng.Intn(len(haystack)-start-4+1)
			needle = strings.ToUpper(haystack[start:end])
		} else {
			needle = randString(rng.Intn(8) + 4)
		}

		want := containsFoldASCII(haystack, needle)
		got := containsFoldWords(haystack, needle)
		require.Equal(t, want, got, "haystack=%q needle=%q", haystack, needle)
	}
}

func TestContainsFoldMatchesStringsContains(t *testing.T) {
	// Independent oracle: lowercase both sides and use the stdlib.
	rng := rand.New(rand.NewSource(7))
	alphabet := "aAbBcC/._"
	randString := func(n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		return b.String()
	}
	for i := 0; i < 5000; i++ {
		h := randString(rng.Intn(40))
		n := randString(rng.Intn(10))
		want := strings.Contains(strings.ToLower(h), strings.ToLower(n))
		assert.Equal(t, want, ContainsFold(h, n), "h=%q n=%q", h, n)
	}
}

func TestCounters(t *testing.T) {
	ResetCounters()

	ContainsFold("abcdefghijklmnop", "def")  // short needle -> scalar
	ContainsFold("abcdefghijklmnop", "defg") // long enough -> vector
	ContainsFold("abc", "b")                 // short haystack -> scalar

	st := Counters()
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(1), st.Vector)
	assert.Equal(t, int64(2), st.Scalar)
}

func TestZeroByteMask(t *testing.T) {
	assert.Zero(t, zeroByteMask(0x0101010101010101))
	mask := zeroByteMask(0x0100010101010101)
	assert.NotZero(t, mask)
	assert.Equal(t, 6, trailingZeroBytes(mask))
}
