// Package query embeds user questions and retrieves ranked knowledge chunks.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/coachx-ai/coachx/internal/store"
)

var (
	// ErrEmptyQuery rejects blank query text before any embedding call is made.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrUnknownCategory rejects category filters that were not present at
	// ingestion time, so a typo surfaces as an error instead of an empty
	// result set.
	ErrUnknownCategory = errors.New("unknown knowledge category")

	// ErrInvalidTopK rejects negative topK requests. Zero means "use the
	// configured default"; below zero is caller error.
	ErrInvalidTopK = errors.New("top-k must not be negative")
)

// Embedder is the slice of the embedding provider the engine needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine answers similarity queries against the knowledge store. Safe for
// concurrent use; all store access is read-only.
type Engine struct {
	embedder    Embedder
	store       store.Store
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

// NewEngine creates a query engine. topK requests above maxTopK are clamped,
// not rejected, to protect downstream context-window budgets.
func NewEngine(embedder Embedder, st store.Store, defaultTopK, maxTopK int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder:    embedder,
		store:       st,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
}

// Search embeds text and returns the topK nearest chunks, optionally
// restricted to one category. topK == 0 selects the configured default;
// a negative topK is rejected.
func (e *Engine) Search(ctx context.Context, text, category string, topK int) ([]store.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	if topK < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if topK == 0 {
		topK = e.defaultTopK
	}
	if topK > e.maxTopK {
		topK = e.maxTopK
	}

	if category != "" {
		if err := e.validateCategory(ctx, category); err != nil {
			return nil, err
		}
	}

	embeddings, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(embeddings))
	}

	results, err := e.store.Query(ctx, embeddings[0], topK, category)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Knowledge query", "category", category, "top_k", topK, "results", len(results))
	return results, nil
}

// validateCategory checks the filter against the categories recorded at last
// ingestion. A store that was never ingested accepts any filter; every query
// against it is empty anyway.
func (e *Engine) validateCategory(ctx context.Context, category string) error {
	fp, err := e.store.Fingerprint(ctx)
	if errors.Is(err, store.ErrNotIngested) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading fingerprint: %w", err)
	}
	if !slices.Contains(fp.Categories, category) {
		return fmt.Errorf("%w: %q (known: %s)", ErrUnknownCategory, category, strings.Join(fp.Categories, ", "))
	}
	return nil
}

// Categories lists the knowledge categories recorded at last ingestion.
func (e *Engine) Categories(ctx context.Context) ([]string, error) {
	fp, err := e.store.Fingerprint(ctx)
	if errors.Is(err, store.ErrNotIngested) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fp.Categories, nil
}

// Stats describes the current state of the index for diagnostics.
type Stats struct {
	Chunks       int      `json:"chunks"`
	Categories   []string `json:"categories"`
	ModelID      string   `json:"embedding_model"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
}

// Stats reports index size and the configuration it was built with.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Chunks: count}
	fp, err := e.store.Fingerprint(ctx)
	if err != nil && !errors.Is(err, store.ErrNotIngested) {
		return nil, err
	}
	if fp != nil {
		stats.Categories = fp.Categories
		stats.ModelID = fp.ModelID
		stats.ChunkSize = fp.ChunkSize
		stats.ChunkOverlap = fp.ChunkOverlap
	}
	return stats, nil
}
