package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "knowledge.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(category, source string, index int, embedding []float32) KnowledgeChunk {
	return KnowledgeChunk{
		ID:         ChunkID(category, source, index),
		Category:   category,
		SourceName: source,
		ChunkIndex: index,
		ChunkCount: 1,
		Text:       category + " chunk " + source,
		Embedding:  embedding,
	}
}

func TestSQLiteStore_UpsertAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "footwork.md", 0, []float32{1, 0, 0}),
		testChunk("boxing", "footwork.md", 1, []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteStore_UpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunk := testChunk("boxing", "footwork.md", 0, []float32{1, 0, 0})
	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{chunk}))

	// Re-ingesting the same triple replaces in place, never duplicates.
	chunk.Text = "updated content"
	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{chunk}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated content", results[0].Text)
}

func TestSQLiteStore_QueryRanksByDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "exact.md", 0, []float32{1, 0, 0}),
		testChunk("boxing", "close.md", 0, []float32{1, 0.2, 0}),
		testChunk("boxing", "far.md", 0, []float32{0, 1, 0}),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact.md", results[0].SourceName)
	assert.Equal(t, "close.md", results[1].SourceName)
	assert.Equal(t, "far.md", results[2].SourceName)

	// Ascending, non-negative distances.
	assert.GreaterOrEqual(t, results[1].Distance, results[0].Distance)
	assert.GreaterOrEqual(t, results[2].Distance, results[1].Distance)
	assert.GreaterOrEqual(t, results[0].Distance, 0.0)
}

func TestSQLiteStore_QueryCategoryFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "jab.md", 0, []float32{1, 0, 0}),
		testChunk("crossfit", "wod.md", 0, []float32{1, 0, 0}),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, "boxing")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "boxing", results[0].Category)

	// Unknown category is an empty result at the store level; validation of
	// filters happens above it.
	results, err = s.Query(ctx, []float32{1, 0, 0}, 10, "yoga")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStore_QueryTopKBound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := make([]KnowledgeChunk, 5)
	for i := range chunks {
		chunks[i] = testChunk("boxing", "drills.md", i, []float32{1, float32(i) * 0.1, 0})
	}
	require.NoError(t, s.Upsert(ctx, chunks))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Fewer matches than topK is not an error.
	results, err = s.Query(ctx, []float32{1, 0, 0}, 50, "")
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestSQLiteStore_ReplaceAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "old.md", 0, []float32{1, 0, 0}),
	}))
	require.NoError(t, s.SetFingerprint(ctx, Fingerprint{ModelID: "openai/text-embedding-3-small", Dimension: 3}))

	require.NoError(t, s.ReplaceAll(ctx, []KnowledgeChunk{
		testChunk("crossfit", "new.md", 0, []float32{0, 1, 0}),
	}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Query(ctx, []float32{0, 1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new.md", results[0].SourceName)

	// The fingerprint goes with the contents it described.
	_, err = s.Fingerprint(ctx)
	assert.ErrorIs(t, err, ErrNotIngested)
}

func TestSQLiteStore_FingerprintSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, 3)
	require.NoError(t, err)

	fp := Fingerprint{
		ModelID:      "openai/text-embedding-3-small",
		Dimension:    3,
		ChunkSize:    500,
		ChunkOverlap: 50,
		Categories:   []string{"boxing", "nutrition"},
	}
	require.NoError(t, s.SetFingerprint(ctx, fp))
	require.NoError(t, s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "jab.md", 0, []float32{1, 0, 0}),
	}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, 3)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp, *got)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_FingerprintMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Fingerprint(context.Background())
	assert.ErrorIs(t, err, ErrNotIngested)
}

func TestSQLiteStore_DimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []KnowledgeChunk{
		testChunk("boxing", "jab.md", 0, []float32{1, 0}),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1, 0, 0, 0}, 3, "")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSQLiteStore_Health(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Health(context.Background()))
}
