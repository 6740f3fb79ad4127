package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/inkwell/internal/remote"
	"github.com/starford/inkwell/internal/testutil"
)

func testServer(t *testing.T) (*Server, *remote.Memory) {
	t.Helper()
	stack := testutil.NewStack(t, nil)
	return New(stack.Service, "test"), stack.Remote
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_keywords":
		result, err = srv.listKeywords(ctx, req)
	case "add_keyword":
		result, err = srv.addKeyword(ctx, req)
	case "remove_keyword":
		result, err = srv.removeKeyword(ctx, req)
	case "set_status":
		result, err = srv.setStatus(ctx, req)
	case "delete_content":
		result, err = srv.deleteContent(ctx, req)
	case "reconcile":
		result, err = srv.reconcile(ctx, req)
	case "search_content":
		result, err = srv.searchContent(ctx, req)
	case "history":
		result, err = srv.history(ctx, req)
	case "get_table_format":
		result, err = srv.getTableFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddAndListKeywords(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_keyword", map[string]interface{}{"keyword": "crm pricing", "priority": "high"})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, `"crm pricing" added`) {
		t.Errorf("add result = %q", text)
	}

	r = callTool(t, srv, "list_keywords", map[string]interface{}{"status": "queued"})
	if text := resultText(r); !strings.Contains(text, `"priority": "high"`) {
		t.Errorf("list result = %q", text)
	}
}

func TestAddKeyword_Duplicate(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_keyword", map[string]interface{}{"keyword": "SEO"})

	r := callTool(t, srv, "add_keyword", map[string]interface{}{"keyword": "seo"})
	if !r.IsError {
		t.Error("expected duplicate error")
	}
}

func TestAddKeyword_MissingArgument(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "add_keyword", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing keyword")
	}
}

func TestSetStatusAndRemove(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_keyword", map[string]interface{}{"keyword": "seo"})

	r := callTool(t, srv, "set_status", map[string]interface{}{"keyword": "seo", "status": "generating"})
	if r.IsError {
		t.Fatalf("set_status failed: %s", resultText(r))
	}
	r = callTool(t, srv, "remove_keyword", map[string]interface{}{"keyword": "seo"})
	if r.IsError {
		t.Fatalf("remove failed: %s", resultText(r))
	}
	r = callTool(t, srv, "remove_keyword", map[string]interface{}{"keyword": "seo"})
	if !r.IsError {
		t.Error("expected not-found error on second remove")
	}
}

func TestReconcileAndDeleteContent(t *testing.T) {
	srv, mem := testServer(t)
	mem.Seed("content/blog/organic-seo-content-traffic.md", []byte("# Organic SEO\n\nBody.\n"))
	callTool(t, srv, "add_keyword", map[string]interface{}{"keyword": "organic seo content"})

	r := callTool(t, srv, "reconcile", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, "Synced 1") {
		t.Errorf("reconcile result = %q", text)
	}

	r = callTool(t, srv, "search_content", map[string]interface{}{"query": "organic"})
	if text := resultText(r); !strings.Contains(text, "organic-seo-content-traffic") {
		t.Errorf("search result = %q", text)
	}

	r = callTool(t, srv, "delete_content", map[string]interface{}{"slug": "organic-seo-content-traffic"})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}

	r = callTool(t, srv, "history", map[string]interface{}{"limit": float64(10)})
	if text := resultText(r); !strings.Contains(text, "delete_content") {
		t.Errorf("history = %q", text)
	}
}

func TestGetTableFormat(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_table_format", map[string]interface{}{})
	if resultText(r) != TableFormat {
		t.Error("table format mismatch")
	}
}
