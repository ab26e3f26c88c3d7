// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/engine"
	"github.com/starford/othala/internal/models"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp   *server.MCPServer
	store *engine.Store
}

// New creates a new MCP server with all Othala tools registered.
func New(store *engine.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search page titles and block content. Returns ranked hits."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read a page as an indented outline of its blocks."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title (case/whitespace-insensitive)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a page. Body blocks use [[Page Title]] references; "+
			"read the contract first via the get_page_contract tool or the "+
			"othala://page-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the new page")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("append_block",
		mcp.WithDescription("Append a content block to the end of a page, creating the page when absent."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Target page title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Block content; may contain [[references]]")),
	), s.appendBlock)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages whose blocks reference the given page."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the page to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("today_journal",
		mcp.WithDescription("Return today's journal page, creating it when absent."),
	), s.todayJournal)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the canonical Othala page and block format contract. "+
			"Call this before creating pages or blocks to ensure correct structure."),
	), s.getPageContract)

	// Resource: page format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://page-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical block and reference format all pages follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := s.store.SearchNotes(query)
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := s.store.GetPageByName(title)
	if p == nil {
		return mcp.NewToolResultError(fmt.Sprintf("page not found: %s", title)), nil
	}
	return mcp.NewToolResultText(renderOutline(p, s.store.PageBlocks(p.ID))), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.store.GetPageByName(title) != nil {
		return mcp.NewToolResultError(fmt.Sprintf("page already exists: %s", title)), nil
	}
	p := s.store.CreatePage(title)
	if p == nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid page title: %q", title)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", p.Title, p.ID)), nil
}

func (s *Server) appendBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := s.store.EnsurePage(title)
	if p == nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid page title: %q", title)), nil
	}
	id := s.store.CreateBlock(engine.CreateBlockParams{PageID: p.ID, Content: content})
	if id == "" {
		return mcp.NewToolResultError("block creation failed"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended block %s to %s", id, p.Title)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := s.store.GetPageByName(title)
	if p == nil {
		return mcp.NewToolResultError(fmt.Sprintf("page not found: %s", title)), nil
	}

	links := s.store.Backlinks(p.ID)
	if len(links) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	seen := make(map[string]bool)
	for _, l := range links {
		src := s.store.GetPage(l.SourcePageID)
		if src == nil || seen[src.ID] {
			continue
		}
		seen[src.ID] = true
		lines = append(lines, fmt.Sprintf("%s: %s", src.Title, l.Context))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) todayJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := s.store.GetOrCreateTodayJournal()
	return mcp.NewToolResultText(renderOutline(p, s.store.PageBlocks(p.ID))), nil
}

func (s *Server) getPageContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readPageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://page-format",
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}

// renderOutline flattens a page's block tree into an indented bullet list.
func renderOutline(p *models.Page, blocks []*models.Block) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", p.Title)
	for _, blk := range blocks {
		if blk.Content == "" {
			continue
		}
		b.WriteString(strings.Repeat("  ", blk.Indent))
		b.WriteString("- ")
		b.WriteString(blk.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
