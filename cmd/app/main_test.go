package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/pipeline"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
app:
  log_level: error
  http:
    port: 8080
store:
  mode: local
  local:
    root: %s
  table_path: data/keywords.csv
  content_dir: content/blog
  collection: blog
sqlite:
  path: %s
`, filepath.Join(dir, "site"), filepath.Join(dir, "inkwell.db"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.Writer = &out
	err := root.Run(context.Background(), append([]string{"inkwell"}, args...))
	return out.String(), err
}

func TestCLI_KeywordLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, "-c", cfg, "keywords", "add", "--priority", "high", "crm pricing")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, `"crm pricing" added`) {
		t.Errorf("add output = %q", out)
	}

	out, err = runCLI(t, "-c", cfg, "keywords", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "crm pricing") || !strings.Contains(out, "high") {
		t.Errorf("list output = %q", out)
	}

	if _, err := runCLI(t, "-c", cfg, "keywords", "add", "CRM Pricing"); err == nil {
		t.Error("duplicate add should fail")
	}

	out, err = runCLI(t, "-c", cfg, "history", "--subject", "crm pricing")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "add_keyword") {
		t.Errorf("history output = %q", out)
	}
}

func TestCLI_ReconcileAndDelete(t *testing.T) {
	cfg := writeConfig(t)
	site := filepath.Join(filepath.Dir(cfg), "site", "content", "blog")

	if _, err := runCLI(t, "-c", cfg, "keywords", "add", "organic seo content"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(site, "organic-seo-content-traffic.md"), []byte("# Organic\n\nBody.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "-c", cfg, "reconcile")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "Synced 1") {
		t.Errorf("reconcile output = %q", out)
	}

	out, err = runCLI(t, "-c", cfg, "content", "delete", "organic-seo-content-traffic")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "1 keyword(s) returned") {
		t.Errorf("delete output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(site, "organic-seo-content-traffic.md")); !os.IsNotExist(err) {
		t.Errorf("artifact should be gone, stat err = %v", err)
	}
}

func TestCLI_MissingArgument(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := runCLI(t, "-c", cfg, "keywords", "remove"); err == nil {
		t.Fatal("expected usage error")
	}
}

func TestPrintResult_PartialWarningLine(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, pipeline.Result{Message: "Keyword added", Warning: "remote sync failed"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[1] != "warning: remote sync failed" {
		t.Errorf("warning line = %q", lines[1])
	}

	buf.Reset()
	printResult(&buf, pipeline.Result{Message: "ok"})
	if buf.String() != "ok\n" {
		t.Errorf("plain output = %q", buf.String())
	}
}

func TestKeywordTable(t *testing.T) {
	out := keywordTable([]models.KeywordRecord{{Keyword: "seo", Status: models.StatusPublished, URL: "/blog/seo"}}, false)
	for _, want := range []string{"KEYWORD", "seo", "published", "/blog/seo"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}
