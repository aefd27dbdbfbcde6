// Package ingest walks the knowledge tree and loads it into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coachx-ai/coachx/internal/chunker"
	"github.com/coachx-ai/coachx/internal/store"
)

// ErrMissingRoot means the knowledge root does not exist. Fatal: the system
// has no knowledge to serve.
var ErrMissingRoot = errors.New("knowledge root not found")

// errReadSource marks a failure scoped to reading one source file. Only this
// class of failure is skippable; embed and store errors abort the run.
var errReadSource = errors.New("reading source document")

// sourceExtensions are the document types picked up from category directories.
var sourceExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Embedder is the slice of the embedding provider the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelID() string
}

// Result contains statistics about one ingestion run.
type Result struct {
	TotalDocs   int
	IndexedDocs int
	TotalChunks int
	Categories  []string
	SkippedDocs []SkippedDoc
	Reused      bool // true when the populated index matched the config and was kept
	Duration    time.Duration
}

// SkippedDoc is a source document that failed to read and was left out.
type SkippedDoc struct {
	Category   string
	SourceName string
	Reason     string
}

// Pipeline chunks, embeds, and upserts every source document under a
// two-level category/document tree.
type Pipeline struct {
	splitter *chunker.Splitter
	embedder Embedder
	store    store.Store
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(splitter *chunker.Splitter, embedder Embedder, st store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		splitter: splitter,
		embedder: embedder,
		store:    st,
		logger:   logger,
	}
}

// fingerprint describes the configuration of the run about to happen.
func (p *Pipeline) fingerprint(categories []string) store.Fingerprint {
	return store.Fingerprint{
		ModelID:      p.embedder.ModelID(),
		Dimension:    p.embedder.Dimension(),
		ChunkSize:    p.splitter.ChunkSize(),
		ChunkOverlap: p.splitter.Overlap(),
		Categories:   categories,
	}
}

// Run ingests the tree at root. When force is false and the store is already
// populated under a matching configuration, the run is a no-op; a fingerprint
// mismatch triggers a rebuild even without force, so a configuration change
// never silently serves stale embeddings.
func (p *Pipeline) Run(ctx context.Context, root string, force bool) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoot, root)
	}

	rebuild := force
	if !force {
		count, err := p.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting chunks: %w", err)
		}
		if count > 0 {
			recorded, err := p.store.Fingerprint(ctx)
			switch {
			case errors.Is(err, store.ErrNotIngested):
				// Populated store without a fingerprint predates this config
				// record; rebuild to establish one.
				rebuild = true
			case err != nil:
				return nil, fmt.Errorf("reading fingerprint: %w", err)
			case recorded.Matches(p.fingerprint(nil)):
				p.logger.Info("Index already populated, skipping ingestion",
					"chunks", count, "model", recorded.ModelID)
				return &Result{
					TotalChunks: count,
					Categories:  recorded.Categories,
					Reused:      true,
					Duration:    time.Since(start),
				}, nil
			default:
				p.logger.Info("Ingestion config changed, rebuilding index",
					"recorded_model", recorded.ModelID, "current_model", p.embedder.ModelID())
				rebuild = true
			}
		}
	}

	if rebuild {
		if err := p.store.ReplaceAll(ctx, nil); err != nil {
			return nil, fmt.Errorf("clearing store: %w", err)
		}
	}

	result := &Result{}
	categories, err := listCategories(root)
	if err != nil {
		return nil, err
	}
	result.Categories = categories

	for _, category := range categories {
		sources, err := listSources(filepath.Join(root, category))
		if err != nil {
			return nil, err
		}
		for _, sourceName := range sources {
			result.TotalDocs++
			chunks, err := p.processDocument(ctx, root, category, sourceName)
			switch {
			case errors.Is(err, errReadSource):
				// One unreadable file; partial knowledge beats total failure.
				p.logger.Warn("Skipping unreadable source",
					"category", category, "source", sourceName, "error", err)
				result.SkippedDocs = append(result.SkippedDocs, SkippedDoc{
					Category:   category,
					SourceName: sourceName,
					Reason:     err.Error(),
				})
				continue
			case err != nil:
				// Embed and store faults are not document-scoped. Continuing
				// would record a fingerprint over a hollow index.
				return nil, fmt.Errorf("indexing %s/%s: %w", category, sourceName, err)
			}
			result.IndexedDocs++
			result.TotalChunks += chunks
		}
	}

	if err := p.store.SetFingerprint(ctx, p.fingerprint(categories)); err != nil {
		return nil, fmt.Errorf("recording fingerprint: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"docs", result.IndexedDocs,
		"skipped", len(result.SkippedDocs),
		"chunks", result.TotalChunks,
		"categories", len(result.Categories),
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument reads, chunks, embeds, and upserts one source document.
// Returns the number of chunks written.
func (p *Pipeline) processDocument(ctx context.Context, root, category, sourceName string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(root, category, sourceName))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errReadSource, err)
	}

	texts := p.splitter.Split(string(raw))
	if len(texts) == 0 {
		p.logger.Debug("Empty source produced no chunks", "category", category, "source", sourceName)
		return 0, nil
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(texts))
	}

	chunks := make([]store.KnowledgeChunk, len(texts))
	for i, text := range texts {
		chunks[i] = store.KnowledgeChunk{
			ID:         store.ChunkID(category, sourceName, i),
			Category:   category,
			SourceName: sourceName,
			ChunkIndex: i,
			ChunkCount: len(texts),
			Text:       text,
			Embedding:  embeddings[i],
		}
	}

	if err := p.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	p.logger.Debug("Indexed source", "category", category, "source", sourceName, "chunks", len(chunks))
	return len(chunks), nil
}

// listCategories returns the sorted top-level directory names under root.
func listCategories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge root: %w", err)
	}

	var categories []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			categories = append(categories, entry.Name())
		}
	}
	return categories, nil
}

// listSources returns the source document names in one category directory.
func listSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading category %s: %w", dir, err)
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			sources = append(sources, entry.Name())
		}
	}
	return sources, nil
}
