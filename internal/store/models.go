package store

import (
	"fmt"

	"github.com/google/uuid"
)

// KnowledgeChunk is the atomic indexed unit: a bounded excerpt of one source
// document together with its embedding and citation metadata.
type KnowledgeChunk struct {
	ID         string    // deterministic, derived from (category, source, index)
	Category   string    // knowledge domain; chunks never span categories
	SourceName string    // originating document within its category
	ChunkIndex int       // position within the source document (0, 1, 2...)
	ChunkCount int       // total chunks produced from the same source
	Text       string    // chunk content
	Embedding  []float32 // vector produced at ingestion time
}

// QueryResult is one ranked match from a similarity query. Transient, never
// persisted; Distance values are comparable only within a single query.
type QueryResult struct {
	Text       string
	Category   string
	SourceName string
	ChunkIndex int
	Distance   float64 // cosine distance, ascending = more relevant
}

// Fingerprint records the configuration the index was built with. A restart
// under a different embedding model or chunking setup is detected by
// comparing fingerprints instead of silently serving stale vectors.
type Fingerprint struct {
	ModelID      string   `json:"model_id"`
	Dimension    int      `json:"dimension"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Categories   []string `json:"categories"`
}

// Matches reports whether two fingerprints describe the same embedding and
// chunking configuration. Categories are informational and not compared;
// source tree changes are handled by forced rebuilds only.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.ModelID == other.ModelID &&
		f.Dimension == other.Dimension &&
		f.ChunkSize == other.ChunkSize &&
		f.ChunkOverlap == other.ChunkOverlap
}

// ChunkID derives the deterministic chunk identity from its source triple.
// Same input always yields the same id, which is what makes re-ingestion an
// upsert rather than a duplicate insert. The result is a valid UUID so both
// store backends can use it as a point id directly.
func ChunkID(category, sourceName string, index int) string {
	name := fmt.Sprintf("coachx://%s/%s#%d", category, sourceName, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
