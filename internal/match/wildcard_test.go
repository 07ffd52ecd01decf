package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchWildcard(t *testing.T) {
	cases := []struct {
		text, pattern string
		want          bool
	}{
		{"report.txt", "*.txt", true},
		{"report.txt", "*.md", false},
		{"report.txt", "report.*", true},
		{"report.txt", "r?port.txt", true},
		{"report.txt", "r?port.md", false},
		{"abc", "*", true},
		{"", "*", true},
		{"", "?", false},
		{"abc", "a*c", true},
		{"ac", "a*c", true},
		{"abbbc", "a*c", true},
		{"abbbd", "a*c", false},
		{"a", "a*", true},
		{"backup.tar.gz", "*.tar.gz", true},
		{"backup.tar.gz", "*.gz", true},
		{"backup.tar.gz", "backup*gz", true},
		{"xyxz", "x*xz", true}, // backtracking over the star
		{"mississippi", "m*iss*ppi", true},
		{"mississippi", "m*jss*ppi", false},
		{"abc", "abc*", true},
		{"abc", "abcd", false},
		{"abc", "ab", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchWildcard(tc.text, tc.pattern, true),
			"text=%q pattern=%q", tc.text, tc.pattern)
	}
}

func TestMatchWildcardCaseFolding(t *testing.T) {
	assert.True(t, MatchWildcard("README.TXT", "*.txt", false))
	assert.False(t, MatchWildcard("README.TXT", "*.txt", true))
	assert.True(t, MatchWildcard("Data-2024.CSV", "data-????.csv", false))
}

func TestHasWildcards(t *testing.T) {
	assert.True(t, HasWildcards("*.go"))
	assert.True(t, HasWildcards("file?.txt"))
	assert.False(t, HasWildcards("plain.txt"))
}
