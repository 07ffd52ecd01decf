// Package query compiles a SearchQuery once and streams matching entries
// from the index store. The predicate stack runs cheapest-first; the text
// match is last.
package query

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/match"
	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Compiled is a query after validation and one-time setup: the text matcher
// is resolved, paths are normalized, and range contradictions are rejected.
type Compiled struct {
	query types.SearchQuery

	textMatch func(target string) bool

	basePath     string
	allowList    []string
	denyPrefixes []string
	denyGlobs    []string
	extension    string
}

// Compile validates q and resolves its matchers. Invalid regexes and
// contradictory ranges are reported here, before any iteration starts.
func Compile(q *types.SearchQuery) (*Compiled, error) {
	c := &Compiled{query: *q}

	if q.MaxSize > 0 && q.MinSize > q.MaxSize {
		return nil, fferrors.Newf(fferrors.KindInvalidInput, "compile",
			"size range is contradictory: min %d > max %d", q.MinSize, q.MaxSize)
	}
	if !q.CreatedAfter.IsZero() && !q.CreatedBefore.IsZero() && q.CreatedAfter.After(q.CreatedBefore) {
		return nil, fferrors.Newf(fferrors.KindInvalidInput, "compile",
			"created range is contradictory")
	}
	if !q.ModifiedAfter.IsZero() && !q.ModifiedBefore.IsZero() && q.ModifiedAfter.After(q.ModifiedBefore) {
		return nil, fferrors.Newf(fferrors.KindInvalidInput, "compile",
			"modified range is contradictory")
	}

	switch {
	case q.Text == "":
		c.textMatch = func(string) bool { return true }
	case q.UseRegex:
		pattern := q.Text
		if !q.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fferrors.New(fferrors.KindInvalidInput, "compile", err)
		}
		c.textMatch = re.MatchString
	case match.HasWildcards(q.Text):
		pattern := q.Text
		caseSensitive := q.CaseSensitive
		c.textMatch = func(target string) bool {
			return match.MatchWildcard(target, pattern, caseSensitive)
		}
	default:
		needle := q.Text
		if q.CaseSensitive {
			c.textMatch = func(target string) bool {
				return match.Contains(target, needle)
			}
		} else {
			c.textMatch = func(target string) bool {
				return match.ContainsFold(target, needle)
			}
		}
	}

	if q.BasePath != "" {
		c.basePath = strpool.NormalizePath(q.BasePath)
	}
	for _, loc := range q.SearchLocations {
		c.allowList = append(c.allowList, strpool.NormalizePath(loc))
	}
	for _, p := range q.ExcludedPaths {
		if strings.ContainsAny(p, "*?[") {
			c.denyGlobs = append(c.denyGlobs, p)
		} else {
			c.denyPrefixes = append(c.denyPrefixes, strpool.NormalizePath(p))
		}
	}
	if q.ExtensionFilter != "" {
		c.extension = normalizeExt(q.ExtensionFilter)
	}
	return c, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// triePrefixes returns the subtree prefixes iteration can start from, or
// nil when a full-store scan is required.
func (c *Compiled) triePrefixes() []string {
	if len(c.allowList) > 0 {
		return c.allowList
	}
	if c.basePath != "" {
		return []string{c.basePath}
	}
	return nil
}

func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	c := path[len(prefix)]
	return c == '/' || c == '\\'
}

func (c *Compiled) deniedPath(normalized string) bool {
	for _, prefix := range c.denyPrefixes {
		if hasPathPrefix(normalized, prefix) {
			return true
		}
	}
	if len(c.denyGlobs) > 0 {
		slashed := strings.ReplaceAll(normalized, "\\", "/")
		for _, pattern := range c.denyGlobs {
			if ok, _ := doublestar.Match(pattern, slashed); ok {
				return true
			}
		}
	}
	return false
}
