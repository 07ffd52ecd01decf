package persist

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
	"github.com/standardbeagle/fastfind/internal/match"
	"github.com/standardbeagle/fastfind/internal/types"
)

// Search executes the query against the committed rows. Structured
// predicates translate to SQL; regex and wildcard text predicates are
// applied in Go over the SQL-filtered candidates so the semantics match
// the in-memory evaluator exactly.
func (s *Store) Search(ctx context.Context, q *types.SearchQuery) (*types.SearchResult, error) {
	started := time.Now()

	var re *regexp.Regexp
	if q.UseRegex {
		pattern := q.Text
		if !q.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, fferrors.New(fferrors.KindInvalidInput, "search", err)
		}
	}
	if q.MaxSize > 0 && q.MinSize > q.MaxSize {
		return nil, fferrors.Newf(fferrors.KindInvalidInput, "search", "size range is contradictory")
	}

	where, args := buildWhere(q)
	sqlText := `SELECT ` + selectCols + ` FROM entries`
	if len(where) > 0 {
		sqlText += ` WHERE ` + strings.Join(where, " AND ")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, classify("search", err)
	}
	defer rows.Close()

	result := &types.SearchResult{}
	limit := q.MaxResults
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, fferrors.New(fferrors.KindCancelled, "search", ctx.Err())
		}
		e, err := scanEntry(rows)
		if err != nil {
			return nil, classify("search", err)
		}
		if deniedByGlob(q, e.FullPath) {
			continue
		}
		if !acceptText(q, re, e) {
			continue
		}
		result.Total++
		if limit > 0 && int64(len(result.Entries)) >= int64(limit) {
			result.HasMore = true
			continue
		}
		result.Entries = append(result.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search", err)
	}
	result.Returned = int64(len(result.Entries))
	result.Elapsed = time.Since(started)
	return result, nil
}

// buildWhere translates the structured predicates to SQL. Text handling:
// plain substring needles use instr over the normalized columns; regex and
// wildcard matching stay in Go.
func buildWhere(q *types.SearchQuery) (clauses []string, args []any) {
	if q.Text != "" && !q.UseRegex && !match.HasWildcards(q.Text) {
		col := "full_path"
		if q.NameOnly {
			col = "name"
		}
		// Stored values are normalized lowercase, so folding the needle
		// gives case-insensitive matching for free.
		clauses = append(clauses, `instr(`+col+`, ?) > 0`)
		args = append(args, strings.ToLower(q.Text))
	}

	if q.BasePath != "" {
		base := normalizeKey(q.BasePath)
		if q.IncludeSubdirectories {
			clauses = append(clauses, `(full_path = ? OR full_path LIKE ? ESCAPE '\')`)
			args = append(args, base, likePrefix(base)+"%")
		} else {
			clauses = append(clauses, `dir = ?`)
			args = append(args, base)
		}
	}
	if len(q.SearchLocations) > 0 {
		var sub []string
		for _, loc := range q.SearchLocations {
			sub = append(sub, `full_path LIKE ? ESCAPE '\'`)
			args = append(args, likePrefix(normalizeKey(loc))+"%")
		}
		clauses = append(clauses, `(`+strings.Join(sub, " OR ")+`)`)
	}
	for _, p := range q.ExcludedPaths {
		if strings.ContainsAny(p, "*?[") {
			continue // glob denies are applied in Go by deniedByGlob
		}
		clauses = append(clauses, `full_path NOT LIKE ? ESCAPE '\'`)
		args = append(args, likePrefix(normalizeKey(p))+"%")
	}

	if !q.IncludeDirectories {
		clauses = append(clauses, `attr & 1 = 0`)
	}
	if !q.IncludeFiles {
		clauses = append(clauses, `attr & 1 != 0`)
	}
	if !q.IncludeHidden {
		clauses = append(clauses, `attr & 2 = 0`)
	}
	if !q.IncludeSystem {
		clauses = append(clauses, `attr & 4 = 0`)
	}
	if q.RequiredAttrs != 0 {
		clauses = append(clauses, `attr & ? = ?`)
		args = append(args, int64(q.RequiredAttrs), int64(q.RequiredAttrs))
	}
	if q.ExcludedAttrs != 0 {
		clauses = append(clauses, `attr & ? = 0`)
		args = append(args, int64(q.ExcludedAttrs))
	}

	if q.ExtensionFilter != "" {
		ext := strings.ToLower(strings.TrimSpace(q.ExtensionFilter))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		clauses = append(clauses, `ext = ?`)
		args = append(args, ext)
	}

	if q.MinSize > 0 {
		clauses = append(clauses, `(attr & 1 != 0 OR size >= ?)`)
		args = append(args, q.MinSize)
	}
	if q.MaxSize > 0 {
		clauses = append(clauses, `(attr & 1 != 0 OR size <= ?)`)
		args = append(args, q.MaxSize)
	}

	if !q.CreatedAfter.IsZero() {
		clauses = append(clauses, `created >= ?`)
		args = append(args, q.CreatedAfter.Unix())
	}
	if !q.CreatedBefore.IsZero() {
		clauses = append(clauses, `created <= ?`)
		args = append(args, q.CreatedBefore.Unix())
	}
	if !q.ModifiedAfter.IsZero() {
		clauses = append(clauses, `modified >= ?`)
		args = append(args, q.ModifiedAfter.Unix())
	}
	if !q.ModifiedBefore.IsZero() {
		clauses = append(clauses, `modified <= ?`)
		args = append(args, q.ModifiedBefore.Unix())
	}
	return clauses, args
}

// likePrefix escapes LIKE metacharacters in a literal prefix.
func likePrefix(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// deniedByGlob applies the glob-pattern deny rules SQL cannot express.
func deniedByGlob(q *types.SearchQuery, fullPath string) bool {
	slashed := strings.ReplaceAll(fullPath, "\\", "/")
	for _, p := range q.ExcludedPaths {
		if !strings.ContainsAny(p, "*?[") {
			continue
		}
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
	}
	return false
}

// acceptText applies the parts of the text predicate SQL cannot express.
func acceptText(q *types.SearchQuery, re *regexp.Regexp, e types.Entry) bool {
	target := e.FullPath
	if q.NameOnly {
		target = e.Name
	}
	switch {
	case q.Text == "":
		return true
	case q.UseRegex:
		return re.MatchString(target)
	case match.HasWildcards(q.Text):
		return match.MatchWildcard(target, q.Text, q.CaseSensitive)
	default:
		// Already filtered by the instr clause.
		return true
	}
}

// MatchNames runs a token query against the FTS index and returns the
// matching full paths. This is the fast path for whole-word name lookups;
// substring queries go through Search.
func (s *Store) MatchNames(ctx context.Context, term string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	// Quote the term so FTS treats it as a literal token prefix.
	quoted := `"` + strings.ReplaceAll(term, `"`, `""`) + `"*`
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.full_path
		FROM entries_fts f JOIN entries e ON e.rowid = f.rowid
		WHERE entries_fts MATCH ?
		LIMIT ?`, quoted, limit)
	if err != nil {
		return nil, classify("match_names", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, classify("match_names", err)
		}
		paths = append(paths, p)
	}
	return paths, classify("match_names", rows.Err())
}
