package types

import "time"

// SearchQuery is the closed set of predicate options a search accepts.
// Use NewSearchQuery to get a query with the documented defaults; a zero
// value excludes both files and directories.
type SearchQuery struct {
	// Text is the needle. Empty text matches every entry.
	Text          string
	CaseSensitive bool
	UseRegex      bool
	// NameOnly restricts the text predicate to the file name instead of
	// the full path.
	NameOnly bool

	// BasePath restricts results to a directory subtree (or, with
	// IncludeSubdirectories false, to entries directly inside it).
	BasePath              string
	IncludeSubdirectories bool

	// ExtensionFilter matches the entry extension case-insensitively.
	// A leading dot is optional.
	ExtensionFilter string

	IncludeFiles       bool
	IncludeDirectories bool
	IncludeHidden      bool
	IncludeSystem      bool

	// Size range in bytes. MaxSize zero means unbounded.
	MinSize int64
	MaxSize int64

	// Date ranges. Zero times are unbounded.
	CreatedAfter   time.Time
	CreatedBefore  time.Time
	ModifiedAfter  time.Time
	ModifiedBefore time.Time

	// RequiredAttrs must all be set on a match; ExcludedAttrs must all be
	// clear.
	RequiredAttrs AttrBits
	ExcludedAttrs AttrBits

	// SearchLocations is an allow-list of path prefixes; ExcludedPaths is
	// a deny-list of prefixes or glob patterns.
	SearchLocations []string
	ExcludedPaths   []string

	// MaxResults caps the number of streamed results. Zero or negative
	// means no cap.
	MaxResults int
}

// NewSearchQuery returns a query for text with the standard defaults:
// case-insensitive, files and directories included, subtree search.
func NewSearchQuery(text string) *SearchQuery {
	return &SearchQuery{
		Text:                  text,
		IncludeSubdirectories: true,
		IncludeFiles:          true,
		IncludeDirectories:    true,
	}
}

// SearchResult is the outcome of a completed search. On failure Err carries
// the reason and Entries is nil; iteration never started.
type SearchResult struct {
	Total    int64
	Returned int64
	Elapsed  time.Duration
	HasMore  bool
	Entries  []Entry
	Err      error
}
