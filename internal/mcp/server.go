package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coachx-ai/coachx/internal/generation"
	"github.com/coachx-ai/coachx/internal/query"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server    *mcp.Server
	engine    *query.Engine
	generator *generation.Generator
}

// Config holds server dependencies. Generator is optional; when nil the
// coach_advice tool is not registered.
type Config struct {
	Engine    *query.Engine
	Generator *generation.Generator
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "coachx-knowledge-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_knowledge",
		Description: "Search the coaching knowledge base semantically. Returns ranked knowledge chunks plus an assembled context block with numbered source citations.",
	}, makeQueryHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the knowledge categories available for filtering query_knowledge results.",
	}, makeCategoriesHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "knowledge_stats",
		Description: "Report the current state of the knowledge index: chunk count, categories, embedding model, and chunking configuration.",
	}, makeStatsHandler(cfg.Engine))

	if cfg.Generator != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "coach_advice",
			Description: "Answer a coaching question using retrieved knowledge. Returns the answer, the knowledge it was grounded in, and citation details.",
		}, makeAdviceHandler(cfg.Engine, cfg.Generator))
	}

	return &Server{
		server:    server,
		engine:    cfg.Engine,
		generator: cfg.Generator,
	}
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler exposes the same tool set over Streamable HTTP, mountable on a
// mux path such as "/mcp". Sessions are stateful; the knowledge tools carry
// no per-session state themselves, so every request sees the same index.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
