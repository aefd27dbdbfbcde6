// Package store persists knowledge chunks and answers nearest-neighbor
// queries over their embeddings.
package store

import (
	"context"
	"math"
)

// Store is the persistent vector index. Implementations must survive process
// restarts and tolerate concurrent readers; writes (Upsert, ReplaceAll) are
// expected to be sequenced by the caller before query traffic starts.
type Store interface {
	// Upsert inserts new chunk ids and replaces existing ones in place.
	Upsert(ctx context.Context, chunks []KnowledgeChunk) error

	// ReplaceAll atomically discards the previous contents (including the
	// fingerprint) and installs the given set. Used only for forced rebuilds.
	ReplaceAll(ctx context.Context, chunks []KnowledgeChunk) error

	// Query returns at most topK chunks nearest to embedding, ordered by
	// ascending distance. A non-empty category restricts results to that
	// category; fewer matches than topK is not an error.
	Query(ctx context.Context, embedding []float32, topK int, category string) ([]QueryResult, error)

	// Count reports the total number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Fingerprint returns the ingestion configuration recorded at last
	// ingestion, or ErrNotIngested if the store was never populated.
	Fingerprint(ctx context.Context) (*Fingerprint, error)

	// SetFingerprint records the ingestion configuration.
	SetFingerprint(ctx context.Context, fp Fingerprint) error

	// Health reports whether the backing storage is reachable.
	Health(ctx context.Context) error

	Close() error
}

// cosineDistance computes 1 - cosine similarity, so that 0 means identical
// direction and larger means less similar. A zero-magnitude vector has no
// direction; its distance is defined as 1 (orthogonal-equivalent).
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
