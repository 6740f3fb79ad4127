package index

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "inkwell-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testParse indexes .md files under a /blog/ URL.
func testParse(p string, data []byte) (models.ContentArtifact, bool) {
	if !strings.HasSuffix(p, ".md") {
		return models.ContentArtifact{}, false
	}
	res, err := parser.Parse(data)
	if err != nil {
		return models.ContentArtifact{}, false
	}
	slug := strings.TrimSuffix(filepath.Base(p), ".md")
	return models.ContentArtifact{
		Slug:     slug,
		Path:     p,
		Title:    res.Title,
		URL:      "/blog/" + slug,
		Excerpt:  res.Excerpt,
		Tags:     res.Tags,
		Body:     res.Body,
		Revision: checksum.GitBlob(data),
	}, true
}

func artifact(slug, title, body, rev string, tags ...string) models.ContentArtifact {
	return models.ContentArtifact{
		Slug:        slug,
		Path:        "content/blog/" + slug + ".md",
		Title:       title,
		URL:         "/blog/" + slug,
		Body:        body,
		Revision:    rev,
		Tags:        tags,
		PublishedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM artifacts`).Scan(&count); err != nil {
		t.Fatalf("artifacts table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM operations`).Scan(&count); err != nil {
		t.Fatalf("operations table missing: %v", err)
	}
}

func TestUpsertAndGetRevision(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArtifact(artifact("hello", "Hello World", "body", "abc123", "seo")); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	rev, err := db.GetRevision("content/blog/hello.md")
	if err != nil {
		t.Fatalf("GetRevision: %v", err)
	}
	if rev != "abc123" {
		t.Errorf("revision = %q, want %q", rev, "abc123")
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("up", "Old", "old body", "1"))
	_ = db.UpsertArtifact(artifact("up", "New", "new body", "2", "fresh"))

	rev, _ := db.GetRevision("content/blog/up.md")
	if rev != "2" {
		t.Errorf("revision = %q, want %q", rev, "2")
	}
	arts, total, err := db.ListArtifacts(10, 0, "")
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if total != 1 || arts[0].Title != "New" || len(arts[0].Tags) != 1 {
		t.Errorf("list = %+v (total %d)", arts, total)
	}
}

func TestDeleteArtifact(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("del", "Del", "body", "x"))
	if err := db.DeleteArtifact("content/blog/del.md"); err != nil {
		t.Fatalf("DeleteArtifact: %v", err)
	}
	rev, _ := db.GetRevision("content/blog/del.md")
	if rev != "" {
		t.Errorf("deleted artifact still has revision %q", rev)
	}
}

func TestGetRevision_NotFound(t *testing.T) {
	db := testDB(t)
	rev, err := db.GetRevision("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev != "" {
		t.Errorf("expected empty revision, got %q", rev)
	}
}

func TestListArtifacts_PagingAndTag(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("c-post", "C", "", "1", "seo"))
	_ = db.UpsertArtifact(artifact("a-post", "A", "", "1", "seo", "ppc"))
	_ = db.UpsertArtifact(artifact("b-post", "B", "", "1"))

	page, total, err := db.ListArtifacts(2, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 || page[0].Slug != "a-post" || page[1].Slug != "b-post" {
		t.Errorf("page = %+v (total %d)", page, total)
	}

	tagged, total, err := db.ListArtifacts(10, 0, "seo")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || tagged[0].Slug != "a-post" || tagged[1].Slug != "c-post" {
		t.Errorf("tagged = %+v (total %d)", tagged, total)
	}
}

func TestSyncArtifacts(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("keep", "Keep", "", "1"))
	_ = db.UpsertArtifact(artifact("stale", "Stale", "", "1"))

	n, err := db.SyncArtifacts([]models.ContentArtifact{
		artifact("keep", "Keep", "", "1"),
		artifact("new", "New", "", "1"),
	})
	if err != nil {
		t.Fatalf("SyncArtifacts: %v", err)
	}
	if n != 2 {
		t.Errorf("changed = %d, want 2 (one insert, one delete)", n)
	}
	revs, _ := db.AllRevisions()
	if _, ok := revs["content/blog/stale.md"]; ok {
		t.Error("stale artifact not removed")
	}
	if len(revs) != 2 {
		t.Errorf("revisions = %v", revs)
	}

	n, _ = db.SyncArtifacts([]models.ContentArtifact{artifact("keep", "Keep", "", "1"), artifact("new", "New", "", "1")})
	if n != 0 {
		t.Errorf("second sync changed %d rows, want 0", n)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("s", "Search Me", "uniqueword appears here", "1"))

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "s" || results[0].URL != "/blog/s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSearch_AllWordsAcrossFields(t *testing.T) {
	db := testDB(t)
	a := artifact("onpage", "On-Page SEO Checklist", "Fix titles before links.", "1", "seo")
	a.Excerpt = "A checklist for on-page work"
	_ = db.UpsertArtifact(a)
	_ = db.UpsertArtifact(artifact("links", "Links That Last", "Outreach that earns mentions.", "1", "seo"))

	results, err := db.Search("on-page checklist", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "onpage" {
		t.Errorf("search results = %+v, want only onpage", results)
	}

	results, _ = db.Search("links", 10)
	if len(results) != 2 {
		t.Fatalf("search results = %+v, want 2", results)
	}
	if results[0].Slug != "links" {
		t.Errorf("title hit should rank first, got %q", results[0].Slug)
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("s", "Search Me", "body", "1"))

	results, err := db.Search("   ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("blank query results = %#v, want empty slice", results)
	}
}

func TestOperations_RecordAndList(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	first, err := db.RecordOperation(Operation{Name: "add_keyword", Subject: "seo", Actor: "ann", Outcome: OutcomeOK, Message: "added", CreatedAt: base})
	if err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if first.ID == "" {
		t.Error("expected generated id")
	}
	_, _ = db.RecordOperation(Operation{Name: "add_keyword", Subject: "ppc", Outcome: OutcomePartial, Warning: "remote down", CreatedAt: base.Add(time.Minute)})
	_, _ = db.RecordOperation(Operation{Name: "remove_keyword", Subject: "seo", Outcome: OutcomeFailed, CreatedAt: base.Add(2 * time.Minute)})

	all, err := db.Operations(10, "")
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if len(all) != 3 || all[0].Name != "remove_keyword" || all[2].ID != first.ID {
		t.Errorf("operations = %+v", all)
	}
	if all[1].Warning != "remote down" || all[1].Outcome != OutcomePartial {
		t.Errorf("partial entry = %+v", all[1])
	}

	seo, _ := db.Operations(10, "seo")
	if len(seo) != 2 {
		t.Errorf("len(seo ops) = %d, want 2", len(seo))
	}
	limited, _ := db.Operations(1, "")
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d", len(limited))
	}
}
