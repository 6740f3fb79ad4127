package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/inkwell/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertArtifact inserts or replaces an artifact and its FTS entry within a transaction.
func (db *DB) UpsertArtifact(a models.ContentArtifact) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := upsertArtifact(tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertArtifact(tx *sql.Tx, a models.ContentArtifact) error {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	publishedAt := a.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	_, err := tx.Exec(`
		INSERT INTO artifacts (path, slug, title, url, excerpt, revision, tags, body, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug         = excluded.slug,
			title        = excluded.title,
			url          = excluded.url,
			excerpt      = excluded.excerpt,
			revision     = excluded.revision,
			tags         = excluded.tags,
			body         = excluded.body,
			published_at = excluded.published_at
	`, a.Path, a.Slug, a.Title, a.URL, a.Excerpt, a.Revision, string(tagsJSON), a.Body, publishedAt)
	if err != nil {
		return fmt.Errorf("index: upsert artifact: %w", err)
	}
	return ftsUpsert(tx, a.Path, a.Title, a.Excerpt, a.Body, a.Tags)
}

// DeleteArtifact removes an artifact and its FTS entry.
func (db *DB) DeleteArtifact(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM artifacts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete artifact: %w", err)
	}
	return tx.Commit()
}

// GetRevision returns the stored revision for an artifact, or empty string if not found.
func (db *DB) GetRevision(path string) (string, error) {
	var rev string
	err := db.conn.QueryRow(`SELECT revision FROM artifacts WHERE path = ?`, path).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get revision: %w", err)
	}
	return rev, nil
}

// AllRevisions returns path → revision for every indexed artifact.
func (db *DB) AllRevisions() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, revision FROM artifacts`)
	if err != nil {
		return nil, fmt.Errorf("index: all revisions: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, rev string
		if err := rows.Scan(&p, &rev); err != nil {
			return nil, err
		}
		out[p] = rev
	}
	return out, rows.Err()
}

// ListArtifacts returns a page of artifacts ordered by slug, optionally
// filtered by tag, together with the total number of matches.
func (db *DB) ListArtifacts(limit, offset int, tag string) ([]models.ContentArtifact, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where, args := "", []any{}
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(artifacts.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM artifacts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count artifacts: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, slug, title, url, excerpt, revision, tags, published_at
		FROM artifacts `+where+`
		ORDER BY slug
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list artifacts: %w", err)
	}
	defer rows.Close()

	out := []models.ContentArtifact{}
	for rows.Next() {
		var a models.ContentArtifact
		var tagsJSON string
		if err := rows.Scan(&a.Path, &a.Slug, &a.Title, &a.URL, &a.Excerpt, &a.Revision, &tagsJSON, &a.PublishedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &a.Tags)
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// SyncArtifacts makes the index hold exactly arts: changed revisions are
// upserted and paths no longer present are removed, in one transaction.
// It returns the number of rows touched.
func (db *DB) SyncArtifacts(arts []models.ContentArtifact) (int, error) {
	existing, err := db.AllRevisions()
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n := 0
	seen := make(map[string]struct{}, len(arts))
	for _, a := range arts {
		seen[a.Path] = struct{}{}
		if rev, ok := existing[a.Path]; ok && rev == a.Revision {
			continue
		}
		if err := upsertArtifact(tx, a); err != nil {
			return 0, err
		}
		n++
	}
	for p := range existing {
		if _, ok := seen[p]; ok {
			continue
		}
		ftsDelete(tx, p)
		if _, err := tx.Exec(`DELETE FROM artifacts WHERE path = ?`, p); err != nil {
			return 0, fmt.Errorf("index: delete stale artifact: %w", err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit sync: %w", err)
	}
	return n, nil
}
