package scan

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// filterSet is the pre-compiled rejection logic applied to every child
// before a record is built. Cheap checks run first.
type filterSet struct {
	opts *types.IndexingOptions

	// Bare segment names ("node_modules"), normalized path prefixes, and
	// glob patterns, split once at construction.
	segments map[string]struct{}
	prefixes []string
	globs    []string

	extensions map[string]struct{}
}

func newFilterSet(opts *types.IndexingOptions) *filterSet {
	f := &filterSet{
		opts:       opts,
		segments:   make(map[string]struct{}),
		extensions: make(map[string]struct{}),
	}
	for _, p := range opts.ExcludedPaths {
		switch {
		case strings.ContainsAny(p, "*?["):
			f.globs = append(f.globs, p)
		case strings.ContainsAny(p, "/\\"):
			f.prefixes = append(f.prefixes, strpool.NormalizePath(p))
		default:
			f.segments[strings.ToLower(p)] = struct{}{}
		}
	}
	for _, ext := range opts.ExcludedExtensions {
		f.extensions[normalizeExt(ext)] = struct{}{}
	}
	return f
}

// normalizeExt lowercases and guarantees a leading dot.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// excludesSegment rejects a child by bare name before any stat.
func (f *filterSet) excludesSegment(name string) bool {
	if len(f.segments) == 0 {
		return false
	}
	_, hit := f.segments[strings.ToLower(name)]
	return hit
}

// excludesPath rejects a child by normalized prefix or glob pattern.
func (f *filterSet) excludesPath(path string) bool {
	if len(f.prefixes) == 0 && len(f.globs) == 0 {
		return false
	}
	normalized := strpool.NormalizePath(path)
	for _, prefix := range f.prefixes {
		if hasPathPrefix(normalized, prefix) {
			return true
		}
	}
	if len(f.globs) > 0 {
		slashed := strings.ReplaceAll(normalized, "\\", "/")
		for _, pattern := range f.globs {
			if ok, _ := doublestar.Match(pattern, slashed); ok {
				return true
			}
		}
	}
	return false
}

// hasPathPrefix matches whole path components, so /a/b does not claim
// /a/bc.
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

// keep applies the attribute, extension and size filters after the child
// has been stat'ed.
func (f *filterSet) keep(name string, info os.FileInfo) bool {
	hidden, system := platformAttrs(name, info)
	if hidden && !f.opts.IncludeHidden {
		return false
	}
	// The system bit is only trusted at the enumerator on platforms that
	// report it natively; elsewhere the evaluator filters.
	if system && systemAttrReliable && !f.opts.IncludeSystem {
		return false
	}
	if info.IsDir() {
		return true
	}
	if len(f.extensions) > 0 {
		if _, hit := f.extensions[normalizeExt(extOf(name))]; hit {
			return false
		}
	}
	if f.opts.MaxFileSize > 0 && info.Size() > f.opts.MaxFileSize {
		return false
	}
	return true
}

// extOf returns the extension including the dot, or "".
func extOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			if i == 0 {
				// Dotfiles have no extension.
				return ""
			}
			return name[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}
