package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stackdocs/docrag/internal/pipeline"
	"github.com/stackdocs/docrag/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	pipeline *pipeline.Pipeline
	store    storage.Store
}

// Config holds server dependencies.
type Config struct {
	Pipeline *pipeline.Pipeline
	Store    storage.Store
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "docrag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_docs",
		Description: "Answer a question from the indexed documentation. Returns a grounded answer with source passages.",
	}, makeAskHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_docs",
		Description: "Search the indexed documentation. Returns ranked passages without generating an answer.",
	}, makeSearchHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all indexed documents with their titles and source paths.",
	}, makeListHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current document and passage counts of the index.",
	}, makeStatusHandler(cfg.Store))

	return &Server{
		server:   server,
		pipeline: cfg.Pipeline,
		store:    cfg.Store,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
