// Package main provides the MCP server entry point for the CoachX knowledge engine.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/coachx-ai/coachx/internal/chunker"
	"github.com/coachx-ai/coachx/internal/config"
	"github.com/coachx-ai/coachx/internal/embedding"
	"github.com/coachx-ai/coachx/internal/generation"
	"github.com/coachx-ai/coachx/internal/ingest"
	mcpserver "github.com/coachx-ai/coachx/internal/mcp"
	"github.com/coachx-ai/coachx/internal/query"
	"github.com/coachx-ai/coachx/internal/store"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	port := getEnv("PORT", "8080")

	logger := slog.Default()

	// Resolve the embedding provider up front. The store needs the vector
	// dimension and startup ingestion needs a working embedding path, so a
	// broken provider is fatal here rather than on the first query.
	provider, err := embedding.NewLazy(cfg.EmbeddingModel).Resolve()
	if err != nil {
		log.Fatalf("failed to initialize embedding provider %q: %v", cfg.EmbeddingModel, err)
	}

	st, err := newStore(cfg, provider.Dimension())
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer st.Close()

	splitter, err := chunker.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("invalid chunker configuration: %v", err)
	}

	// Populate the index at startup. A matching fingerprint makes this a
	// cheap no-op on restart.
	pipeline := ingest.NewPipeline(splitter, provider, st, logger)
	if _, err := pipeline.Run(ctx, cfg.KnowledgeRoot, false); err != nil {
		log.Fatalf("startup ingestion failed: %v", err)
	}

	engine := query.NewEngine(provider, st, cfg.DefaultTopK, cfg.MaxTopK, logger)

	// The advice tool needs a chat model; without an API key the server
	// still runs with retrieval-only tools.
	var generator *generation.Generator
	if g, err := generation.NewGenerator(getEnv("COACHX_CHAT_MODEL", ""), logger); err != nil {
		logger.Warn("Answer generation disabled", "error", err)
	} else {
		generator = g
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Engine:    engine,
		Generator: generator,
	})

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(st))
	mux.Handle("/mcp", server.HTTPHandler())

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start HTTP health endpoint in background for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting CoachX Knowledge MCP Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

// newStore opens the configured vector store backend.
func newStore(cfg *config.Config, dimension int) (store.Store, error) {
	if cfg.StoreBackend == "qdrant" {
		return store.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, dimension)
	}
	return store.NewSQLiteStore(cfg.StorePath, dimension)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
