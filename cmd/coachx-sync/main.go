// Package main provides the CLI for managing the CoachX knowledge index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/coachx-ai/coachx/internal/chunker"
	"github.com/coachx-ai/coachx/internal/config"
	"github.com/coachx-ai/coachx/internal/embedding"
	"github.com/coachx-ai/coachx/internal/ingest"
	"github.com/coachx-ai/coachx/internal/kbsync"
	"github.com/coachx-ai/coachx/internal/markdown"
	"github.com/coachx-ai/coachx/internal/query"
	"github.com/coachx-ai/coachx/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "coachx-sync",
	Short: "CoachX knowledge index management tool",
	Long:  "CLI tool for building and inspecting the CoachX coaching knowledge index",
}

var (
	forceIngest   bool
	queryCategory string
	queryTopK     int
	pullOwner     string
	pullRepo      string
	pullPath      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the knowledge index from the local knowledge root",
	Long: `Chunks, embeds, and indexes every document under the knowledge root.

A populated index built under the same configuration is left untouched;
pass --force to rebuild unconditionally. A changed embedding model or
chunking configuration always triggers a rebuild.

Environment variables:
  COACHX_KNOWLEDGE_ROOT   Source document tree (default: ./knowledge_base)
  COACHX_STORE_BACKEND    "sqlite" or "qdrant" (default: sqlite)
  COACHX_STORE_PATH       SQLite database path (default: ./data/knowledge.db)
  COACHX_EMBEDDING_MODEL  Embedding model id (default: openai/text-embedding-3-small)
  OPENAI_API_KEY          Required for OpenAI embeddings`,
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a similarity query against the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index size and build configuration",
	RunE:  runStats,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the curated knowledge base from GitHub into the knowledge root",
	Long: `Downloads the category/document tree from a GitHub repository into the
local knowledge root, overwriting existing documents. Set GITHUB_TOKEN
for a higher API rate limit.`,
	RunE: runPull,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List source documents with their section outlines",
	RunE:  runSources,
}

func init() {
	ingestCmd.Flags().BoolVar(&forceIngest, "force", false, "rebuild even if the index is current")
	queryCmd.Flags().StringVar(&queryCategory, "category", "", "restrict results to one category")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to return (0 = default)")
	pullCmd.Flags().StringVar(&pullOwner, "owner", "coachx-ai", "GitHub repository owner")
	pullCmd.Flags().StringVar(&pullRepo, "repo", "coachx-knowledge", "GitHub repository name")
	pullCmd.Flags().StringVar(&pullPath, "path", "", "path within the repository holding the categories")

	rootCmd.AddCommand(ingestCmd, queryCmd, statsCmd, pullCmd, sourcesCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore builds the provider and store the way the server does, so the CLI
// and the server always agree on vector dimensions.
func openStore(cfg *config.Config) (embedding.Provider, store.Store, error) {
	provider, err := embedding.NewLazy(cfg.EmbeddingModel).Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	var st store.Store
	if cfg.StoreBackend == "qdrant" {
		st, err = store.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, provider.Dimension())
	} else {
		st, err = store.NewSQLiteStore(cfg.StorePath, provider.Dimension())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	return provider, st, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	provider, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	splitter, err := chunker.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	fmt.Printf("Ingesting %s into %s store...\n", cfg.KnowledgeRoot, cfg.StoreBackend)
	pipeline := ingest.NewPipeline(splitter, provider, st, slog.Default())
	result, err := pipeline.Run(ctx, cfg.KnowledgeRoot, forceIngest)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	if result.Reused {
		fmt.Println("Index already current, nothing to do.")
		fmt.Printf("  Chunks: %d\n", result.TotalChunks)
		return nil
	}

	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d/%d\n", result.IndexedDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Categories: %s\n", strings.Join(result.Categories, ", "))
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.SkippedDocs) > 0 {
		fmt.Println()
		fmt.Println("Skipped documents:")
		for _, skipped := range result.SkippedDocs {
			fmt.Printf("  - %s/%s: %s\n", skipped.Category, skipped.SourceName, skipped.Reason)
		}
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	provider, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := query.NewEngine(provider, st, cfg.DefaultTopK, cfg.MaxTopK, slog.Default())
	results, err := engine.Search(ctx, strings.Join(args, " "), queryCategory, queryTopK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println(query.NoResultsSentinel)
		return nil
	}
	for i, r := range results {
		fmt.Printf("[%d] %s/%s (chunk %d, distance %.4f)\n", i+1, r.Category, r.SourceName, r.ChunkIndex, r.Distance)
		fmt.Println(r.Text)
		fmt.Println()
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	provider, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := query.NewEngine(provider, st, cfg.DefaultTopK, cfg.MaxTopK, slog.Default())
	stats, err := engine.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Backend: %s\n", cfg.StoreBackend)
	fmt.Printf("Chunks: %d\n", stats.Chunks)
	if stats.ModelID == "" {
		fmt.Println("Index has not been ingested yet.")
		return nil
	}
	fmt.Printf("Categories: %s\n", strings.Join(stats.Categories, ", "))
	fmt.Printf("Embedding model: %s\n", stats.ModelID)
	fmt.Printf("Chunk size: %d\n", stats.ChunkSize)
	fmt.Printf("Chunk overlap: %d\n", stats.ChunkOverlap)
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	client, err := kbsync.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	fmt.Printf("Pulling %s/%s into %s...\n", pullOwner, pullRepo, cfg.KnowledgeRoot)
	puller := kbsync.NewPuller(client, pullOwner, pullRepo, pullPath, slog.Default())
	result, err := puller.Pull(ctx, cfg.KnowledgeRoot)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Pull complete!")
	fmt.Printf("  Categories: %d\n", result.Categories)
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Commit: %s\n", result.CommitSHA)
	fmt.Println()
	fmt.Println("Run 'coachx-sync ingest' to index the pulled documents.")
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	inspector := markdown.NewInspector()

	categories, err := os.ReadDir(cfg.KnowledgeRoot)
	if err != nil {
		return fmt.Errorf("reading knowledge root: %w", err)
	}

	for _, category := range categories {
		if !category.IsDir() || strings.HasPrefix(category.Name(), ".") {
			continue
		}
		fmt.Printf("%s/\n", category.Name())

		dir := filepath.Join(cfg.KnowledgeRoot, category.Name())
		sources, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("reading category %s: %w", category.Name(), err)
		}
		for _, source := range sources {
			if source.IsDir() || strings.HasPrefix(source.Name(), ".") {
				continue
			}
			ext := strings.ToLower(filepath.Ext(source.Name()))
			if ext != ".md" && ext != ".txt" {
				continue
			}
			fmt.Printf("  %s\n", source.Name())

			if ext != ".md" {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dir, source.Name()))
			if err != nil {
				return fmt.Errorf("reading %s: %w", source.Name(), err)
			}
			outline, err := inspector.Inspect(raw)
			if err != nil {
				return fmt.Errorf("inspecting %s: %w", source.Name(), err)
			}
			for _, section := range outline.Sections {
				fmt.Printf("    - %s\n", section)
			}
		}
	}
	return nil
}
