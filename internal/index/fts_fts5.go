//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS artifacts_fts USING fts5(
			path UNINDEXED,
			title,
			excerpt,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, excerpt, body string, tags []string) error {
	ftsDelete(tx, path)
	_, err := tx.Exec(`INSERT INTO artifacts_fts (path, title, excerpt, body, tags) VALUES (?, ?, ?, ?, ?)`,
		path, title, excerpt, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM artifacts_fts WHERE path = ?`, path)
}

// Search ranks artifacts with bm25, weighting title over tags, excerpt and
// body. The snippet is cut from the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	words := searchTerms(query)
	if len(words) == 0 {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := db.conn.Query(`
		SELECT f.path, a.slug, a.url, a.title,
		       snippet(artifacts_fts, 3, '<b>', '</b>', '...', 32)
		FROM artifacts_fts f
		JOIN artifacts a ON a.path = f.path
		WHERE artifacts_fts MATCH ?
		ORDER BY bm25(artifacts_fts, 0.0, 10.0, 4.0, 1.0, 6.0), a.slug
		LIMIT ?
	`, matchExpr(words), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
