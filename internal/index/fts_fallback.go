//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the artifacts table is searched directly.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search requires every word to appear in the title, excerpt, body or tags.
// Title hits on the first word sort first, then slug.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	words := searchTerms(query)
	if len(words) == 0 {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	conds := make([]string, len(words))
	args := make([]any, 0, len(words)*4+2)
	for i, w := range words {
		conds[i] = `(title LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`
		p := likePattern(w)
		args = append(args, p, p, p, p)
	}
	args = append(args, likePattern(words[0]), limit)

	rows, err := db.conn.Query(`
		SELECT path, slug, url, title,
		       CASE WHEN excerpt <> '' THEN excerpt ELSE substr(body, 1, 200) END
		FROM artifacts
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY (title LIKE ? ESCAPE '\') DESC, slug
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
