package index

import (
	"database/sql"
	"strings"
)

const defaultSearchLimit = 20

// searchTerms splits free text into lowercase words. Keywords such as
// "on-page seo" stay one word here; each backend decides how to match it.
func searchTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchExpr builds an FTS5 query: every word is a quoted prefix phrase, all
// words must match. Quoting keeps hyphens and colons from being parsed as
// operators.
func matchExpr(words []string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	return strings.Join(parts, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches w anywhere in a column, with LIKE wildcards escaped.
func likePattern(w string) string {
	return "%" + likeEscaper.Replace(w) + "%"
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Slug, &r.URL, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
