// Package config holds the static runtime configuration for the knowledge engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Default configuration values. Chunk sizing matches the tuning the
// knowledge base was authored against.
const (
	DefaultEmbeddingModel = "openai/text-embedding-3-small"
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 50
	DefaultTopK           = 3
	DefaultMaxTopK        = 10
	DefaultKnowledgeRoot  = "./knowledge_base"
	DefaultStorePath      = "./data/knowledge.db"
	DefaultStoreBackend   = "sqlite"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrOverlapTooLarge  = errors.New("chunk overlap must be smaller than chunk size")
	ErrInvalidTopK      = errors.New("top-k must be positive")
)

// Config is the full engine configuration. All values are static at process
// start; there is no hot reload.
type Config struct {
	EmbeddingModel string // provider-qualified model id, e.g. "openai/text-embedding-3-small"
	ChunkSize      int    // chunker budget in characters
	ChunkOverlap   int    // characters repeated between neighboring chunks
	DefaultTopK    int    // query fan-out when the caller doesn't specify one
	MaxTopK        int    // ceiling; larger requests are clamped, not rejected
	KnowledgeRoot  string // two-level category/document source tree
	StorePath      string // sqlite database location
	StoreBackend   string // "sqlite" or "qdrant"
	QdrantHost     string
	QdrantPort     int
}

// FromEnv builds a Config from environment variables, applying defaults and
// validating chunker and query settings before any component is constructed.
func FromEnv() (*Config, error) {
	cfg := &Config{
		EmbeddingModel: getEnv("COACHX_EMBEDDING_MODEL", DefaultEmbeddingModel),
		ChunkSize:      getEnvInt("COACHX_CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:   getEnvInt("COACHX_CHUNK_OVERLAP", DefaultChunkOverlap),
		DefaultTopK:    getEnvInt("COACHX_DEFAULT_TOP_K", DefaultTopK),
		MaxTopK:        getEnvInt("COACHX_MAX_TOP_K", DefaultMaxTopK),
		KnowledgeRoot:  getEnv("COACHX_KNOWLEDGE_ROOT", DefaultKnowledgeRoot),
		StorePath:      getEnv("COACHX_STORE_PATH", DefaultStorePath),
		StoreBackend:   getEnv("COACHX_STORE_BACKEND", DefaultStoreBackend),
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6334),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail deep inside a
// component. Called by FromEnv; exposed for tests and manual construction.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d, chunk size %d", ErrOverlapTooLarge, c.ChunkOverlap, c.ChunkSize)
	}
	if c.DefaultTopK <= 0 || c.MaxTopK <= 0 {
		return fmt.Errorf("%w: default %d, max %d", ErrInvalidTopK, c.DefaultTopK, c.MaxTopK)
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
