package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver
)

const fingerprintKey = "ingest_fingerprint"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the default Store backend: a single durable database file,
// embeddings stored as little-endian float32 blobs, similarity computed
// brute-force at query time. Suited to knowledge bases of a few thousand
// chunks, which is what a curated coaching corpus amounts to.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	dimension int
}

// NewSQLiteStore opens (creating if needed) the database at path. dimension
// is the vector size of the configured embedding provider; chunks and query
// vectors of any other size are rejected to keep the index consistent.
func NewSQLiteStore(path string, dimension int) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	// WAL keeps concurrent readers cheap during query traffic
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, dimension: dimension}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			category    TEXT NOT NULL,
			source_name TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   BLOB NOT NULL,
			UNIQUE (category, source_name, chunk_index)
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks (category);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Health pings the database file.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Upsert inserts or replaces chunks by id.
func (s *SQLiteStore) Upsert(ctx context.Context, chunks []KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.validateDimensions(chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll wipes the index (chunks and fingerprint) and installs the given
// set in a single transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, chunks []KnowledgeChunk) error {
	if err := s.validateDimensions(chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, fingerprintKey); err != nil {
		return fmt.Errorf("clearing fingerprint: %w", err)
	}
	if err := upsertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertChunks(ctx context.Context, tx *sql.Tx, chunks []KnowledgeChunk) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, category, source_name, chunk_index, chunk_count, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category    = excluded.category,
			source_name = excluded.source_name,
			chunk_index = excluded.chunk_index,
			chunk_count = excluded.chunk_count,
			content     = excluded.content,
			embedding   = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx, chunk.ID, chunk.Category, chunk.SourceName,
			chunk.ChunkIndex, chunk.ChunkCount, chunk.Text, float32SliceToBytes(chunk.Embedding))
		if err != nil {
			return fmt.Errorf("upserting chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

// Query scans the (optionally category-filtered) chunk set and ranks it by
// cosine distance to the query embedding.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, topK int, category string) ([]QueryResult, error) {
	if s.dimension > 0 && len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if topK <= 0 {
		return []QueryResult{}, nil
	}

	query := `SELECT category, source_name, chunk_index, content, embedding FROM chunks`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		var blob []byte
		if err := rows.Scan(&r.Category, &r.SourceName, &r.ChunkIndex, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		r.Distance = cosineDistance(embedding, bytesToFloat32Slice(blob))
		// Guard against float wobble; distances are never negative.
		r.Distance = math.Max(r.Distance, 0)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the total number of indexed chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Fingerprint loads the recorded ingestion configuration.
func (s *SQLiteStore) Fingerprint(ctx context.Context) (*Fingerprint, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, fingerprintKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotIngested
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var fp Fingerprint
	if err := json.Unmarshal([]byte(raw), &fp); err != nil {
		return nil, fmt.Errorf("decoding fingerprint: %w", err)
	}
	return &fp, nil
}

// SetFingerprint stores the ingestion configuration.
func (s *SQLiteStore) SetFingerprint(ctx context.Context, fp Fingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encoding fingerprint: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, fingerprintKey, string(raw))
	if err != nil {
		return fmt.Errorf("storing fingerprint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) validateDimensions(chunks []KnowledgeChunk) error {
	if s.dimension <= 0 {
		return nil
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}
	return nil
}

// float32SliceToBytes packs a vector as little-endian float32 bits.
func float32SliceToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32Slice is the inverse of float32SliceToBytes.
func bytesToFloat32Slice(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
