//go:build !sqlite_fts5

package index

import "testing"

func TestLikeSearch_EscapesWildcards(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArtifact(artifact("pct", "Discounts", "save 100 percent", "1"))

	results, err := db.Search("100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("%% matched as a wildcard: %+v", results)
	}
}

func TestLikeSearch_SnippetPrefersExcerpt(t *testing.T) {
	db := testDB(t)
	a := artifact("ex", "Excerpted", "long body text", "1")
	a.Excerpt = "short summary"
	_ = db.UpsertArtifact(a)
	_ = db.UpsertArtifact(artifact("plain", "Plain", "long body text", "1"))

	results, _ := db.Search("long", 10)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		want := "long body text"
		if r.Slug == "ex" {
			want = "short summary"
		}
		if r.Snippet != want {
			t.Errorf("%s snippet = %q, want %q", r.Slug, r.Snippet, want)
		}
	}
}
