package match

import "strings"

// MatchWildcard reports whether text matches pattern, where '*' matches any
// run of characters (including none) and '?' matches exactly one. The
// matcher is the classic two-pointer scan with backtracking to the most
// recent star.
func MatchWildcard(text, pattern string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
		pattern = strings.ToLower(pattern)
	}

	t, p := 0, 0
	starP, starT := -1, 0

	for t < len(text) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == text[t]):
			t++
			p++
		case p < len(pattern) && pattern[p] == '*':
			starP = p
			starT = t
			p++
		case starP >= 0:
			// Mismatch after a star: widen the star by one and retry.
			starT++
			t = starT
			p = starP + 1
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// HasWildcards reports whether pattern contains wildcard metacharacters.
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}
