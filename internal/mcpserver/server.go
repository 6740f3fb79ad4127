// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the keyword queue to LLM tooling via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkwell/internal/auth"
	"github.com/starford/inkwell/internal/pipeline"
	"github.com/starford/inkwell/internal/queue"
)

// Server wraps the MCP server with queue tools.
type Server struct {
	mcp *server.MCPServer
	svc *pipeline.Service
}

// New creates a new MCP server with all queue tools registered. Tool calls
// run as the system principal: stdio access already implies local trust.
func New(svc *pipeline.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Inkwell",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_keywords",
		mcp.WithDescription("List the keyword queue, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Optional status filter"),
			mcp.Enum("queued", "generating", "published", "failed")),
	), s.listKeywords)

	s.mcp.AddTool(mcp.NewTool("add_keyword",
		mcp.WithDescription("Queue a keyword for content production. Keywords are unique "+
			"case-insensitively. Read the table format via get_table_format for allowed values."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Search phrase to target")),
		mcp.WithString("stage", mcp.Description("Funnel stage (TOFU, MOFU, BOFU); default TOFU")),
		mcp.WithString("intent", mcp.Description("Search intent; default informational")),
		mcp.WithString("priority", mcp.Description("high, medium or low; default medium")),
	), s.addKeyword)

	s.mcp.AddTool(mcp.NewTool("remove_keyword",
		mcp.WithDescription("Remove a keyword from the queue. The match is exact and case-sensitive."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Exact keyword as stored")),
	), s.removeKeyword)

	s.mcp.AddTool(mcp.NewTool("set_status",
		mcp.WithDescription("Move a keyword to another production state."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Keyword (case-insensitive)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status"),
			mcp.Enum("queued", "generating", "published", "failed")),
	), s.setStatus)

	s.mcp.AddTool(mcp.NewTool("delete_content",
		mcp.WithDescription("Delete a published article by slug and return its keywords to the queue."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Article slug (file name without extension)")),
	), s.deleteContent)

	s.mcp.AddTool(mcp.NewTool("reconcile",
		mcp.WithDescription("Mark queued keywords as published when matching content exists."),
	), s.reconcile)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Full-text search through published content titles, excerpts, bodies and tags. All words must match."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Recent queue operations, newest first."),
		mcp.WithString("subject", mcp.Description("Optional keyword or slug filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 50)")),
	), s.history)

	s.mcp.AddTool(mcp.NewTool("get_table_format",
		mcp.WithDescription("Returns the keyword table format and the allowed field values."),
	), s.getTableFormat)

	s.mcp.AddResource(
		mcp.NewResource(TableFormatURI, "Keyword Table Format",
			mcp.WithResourceDescription("Columns and values of the keyword queue table."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTableFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func system(ctx context.Context) context.Context {
	return auth.WithPrincipal(ctx, auth.System)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// textResult renders a pipeline result, surfacing partial success.
func textResult(res pipeline.Result) *mcp.CallToolResult {
	if res.Partial() {
		return mcp.NewToolResultText(fmt.Sprintf("%s\nwarning: %s", res.Message, res.Warning))
	}
	return mcp.NewToolResultText(res.Message)
}

func (s *Server) listKeywords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListKeywords(ctx, req.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

func (s *Server) addKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, res, err := s.svc.AddKeyword(system(ctx), queue.AddRequest{
		Keyword:  keyword,
		Stage:    req.GetString("stage", ""),
		Intent:   req.GetString("intent", ""),
		Priority: req.GetString("priority", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(res), nil
}

func (s *Server) removeKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RemoveKeyword(system(ctx), keyword)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(res), nil
}

func (s *Server) setStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, res, err := s.svc.SetStatus(system(ctx), keyword, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(res), nil
}

func (s *Server) deleteContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteContent(system(ctx), slug)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(res), nil
}

func (s *Server) reconcile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Reconcile(system(ctx))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(res.Result), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) history(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ops, err := s.svc.History(ctx, req.GetInt("limit", 50), req.GetString("subject", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ops), nil
}

func (s *Server) getTableFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TableFormat), nil
}

func (s *Server) readTableFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TableFormatURI,
			MIMEType: "text/markdown",
			Text:     TableFormat,
		},
	}, nil
}
