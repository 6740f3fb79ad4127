package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\nexcerpt: Short summary.\ntags:\n  - seo\n  - content\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Excerpt != "Short summary." {
		t.Errorf("excerpt = %q", r.Excerpt)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "seo" || r.Tags[1] != "content" {
		t.Errorf("tags = %v, want [seo content]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text\ncontinues here.\n\nSecond paragraph.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.Excerpt != "Some text continues here." {
		t.Errorf("excerpt = %q", r.Excerpt)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_DescriptionAndCommaTags(t *testing.T) {
	input := []byte("---\ndescription: From description.\ntags: seo, ppc , seo\n---\nBody.\n")
	r, _ := Parse(input)
	if r.Excerpt != "From description." {
		t.Errorf("excerpt = %q", r.Excerpt)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "seo" || r.Tags[1] != "ppc" {
		t.Errorf("tags = %v, want [seo ppc]", r.Tags)
	}
}

func TestParseHTML(t *testing.T) {
	input := []byte("<html><body><h1>Organic SEO</h1><p>Grow <strong>traffic</strong> without ads.</p></body></html>")
	r, err := ParseHTML(input)
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if r.Title != "Organic SEO" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Excerpt != "Grow **traffic** without ads." {
		t.Errorf("excerpt = %q", r.Excerpt)
	}
}

func TestParseFile_DispatchesOnExtension(t *testing.T) {
	r, err := ParseFile("content/blog/a.HTML", []byte("<h1>From HTML</h1>"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "From HTML" {
		t.Errorf("title = %q", r.Title)
	}

	r, _ = ParseFile("content/blog/a.mdx", []byte("import X from 'x'\n\n# From MDX\n\nText.\n"))
	if r.Title != "From MDX" || r.Excerpt != "Text." {
		t.Errorf("mdx result = %q / %q", r.Title, r.Excerpt)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	title := deriveTitle(fm, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
