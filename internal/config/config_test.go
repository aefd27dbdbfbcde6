package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.ChunkOverlap)
	assert.Equal(t, DefaultTopK, cfg.DefaultTopK)
	assert.Equal(t, DefaultMaxTopK, cfg.MaxTopK)
	assert.Equal(t, DefaultKnowledgeRoot, cfg.KnowledgeRoot)
	assert.Equal(t, DefaultStorePath, cfg.StorePath)
	assert.Equal(t, DefaultStoreBackend, cfg.StoreBackend)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COACHX_EMBEDDING_MODEL", "ollama/nomic-embed-text")
	t.Setenv("COACHX_CHUNK_SIZE", "800")
	t.Setenv("COACHX_CHUNK_OVERLAP", "100")
	t.Setenv("COACHX_DEFAULT_TOP_K", "5")
	t.Setenv("COACHX_KNOWLEDGE_ROOT", "/srv/knowledge")
	t.Setenv("COACHX_STORE_BACKEND", "qdrant")
	t.Setenv("QDRANT_HOST", "qdrant.internal")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "ollama/nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.DefaultTopK)
	assert.Equal(t, "/srv/knowledge", cfg.KnowledgeRoot)
	assert.Equal(t, "qdrant", cfg.StoreBackend)
	assert.Equal(t, "qdrant.internal", cfg.QdrantHost)
}

func TestFromEnv_UnparsableIntFallsBack(t *testing.T) {
	t.Setenv("COACHX_CHUNK_SIZE", "lots")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
}

func TestFromEnv_RejectsBadChunking(t *testing.T) {
	t.Setenv("COACHX_CHUNK_SIZE", "100")
	t.Setenv("COACHX_CHUNK_OVERLAP", "100")

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrOverlapTooLarge)
}

func TestValidate(t *testing.T) {
	valid := Config{ChunkSize: 500, ChunkOverlap: 50, DefaultTopK: 3, MaxTopK: 10}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.ChunkSize = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidChunkSize)

	bad = valid
	bad.ChunkOverlap = 500
	assert.ErrorIs(t, bad.Validate(), ErrOverlapTooLarge)

	bad = valid
	bad.DefaultTopK = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTopK)

	bad = valid
	bad.MaxTopK = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTopK)
}

func TestValidate_ClampsDefaultTopK(t *testing.T) {
	cfg := Config{ChunkSize: 500, ChunkOverlap: 50, DefaultTopK: 20, MaxTopK: 10}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.DefaultTopK)
}
