package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// CollectionName is the single Qdrant collection holding the knowledge base.
const CollectionName = "coach_knowledge"

// metaPointID is the fixed, vector-less point carrying the fingerprint.
const metaPointID = "00000000-0000-0000-0000-000000000001"

const vectorName = "content"

var _ Store = (*QdrantStore)(nil)

// QdrantStore is the optional server-backed Store for deployments that
// outgrow the embedded database. Point ids are the deterministic chunk UUIDs,
// so re-ingestion upserts in place exactly like the SQLite backend.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStore connects to Qdrant and fails fast (after a bounded retry
// window) if the server is unreachable.
func NewQdrantStore(host string, port int, dimension int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, dimension: dimension}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// healthCheckWithRetry retries with exponential backoff: initial 500ms,
// max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Health performs a single health check against the server.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection and its category payload index if
// missing. Idempotent. The named-vector config allows the fingerprint point
// to exist without a vector.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without payload indexes, filtered queries degrade badly at scale.
	for _, field := range []string{"type", "category", "source_name"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Close closes the client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Upsert stores chunks in batches of 100 with retry on transient failures.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(chunk.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"type":        "chunk",
					"category":    chunk.Category,
					"source_name": chunk.SourceName,
					"chunk_index": chunk.ChunkIndex,
					"chunk_count": chunk.ChunkCount,
					"content":     chunk.Text,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// ReplaceAll drops the collection, recreates it, and installs the given set.
func (s *QdrantStore) ReplaceAll(ctx context.Context, chunks []KnowledgeChunk) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	return s.Upsert(ctx, chunks)
}

// Query performs vector similarity search, optionally restricted to one
// category. Qdrant reports cosine similarity; it is converted to the cosine
// distance the engine ranks by.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, topK int, category string) ([]QueryResult, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if topK <= 0 {
		return []QueryResult{}, nil
	}

	must := []*qdrant.Condition{
		qdrant.NewMatch("type", "chunk"),
	}
	if category != "" {
		must = append(must, qdrant.NewMatch("category", category))
	}

	using := vectorName
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &using,
		Filter:         &qdrant.Filter{Must: must},
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	results := make([]QueryResult, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		distance := 1 - float64(point.Score)
		if distance < 0 {
			distance = 0
		}
		results = append(results, QueryResult{
			Text:       payload["content"].GetStringValue(),
			Category:   payload["category"].GetStringValue(),
			SourceName: payload["source_name"].GetStringValue(),
			ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
			Distance:   distance,
		})
	}
	return results, nil
}

// Count returns the number of chunk points, excluding the fingerprint point.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", "chunk")},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// Fingerprint reads the ingestion configuration from the meta point.
func (s *QdrantStore) Fingerprint(ctx context.Context) (*Fingerprint, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(metaPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(points) == 0 {
		return nil, ErrNotIngested
	}

	raw := points[0].Payload["fingerprint"].GetStringValue()
	var fp Fingerprint
	if err := json.Unmarshal([]byte(raw), &fp); err != nil {
		return nil, fmt.Errorf("decoding fingerprint: %w", err)
	}
	return &fp, nil
}

// SetFingerprint stores the ingestion configuration as a vector-less point.
func (s *QdrantStore) SetFingerprint(ctx context.Context, fp Fingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encoding fingerprint: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(metaPointID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"type":        "meta",
			"fingerprint": string(raw),
		}),
	}
	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}
