package store

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

// TestChunkID_Deterministic tests that the same source triple always yields
// the same id.
func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("boxing", "footwork.md", 0)
	b := ChunkID("boxing", "footwork.md", 0)
	if a != b {
		t.Errorf("Same triple produced different ids: %q vs %q", a, b)
	}
}

// TestChunkID_DistinguishesInputs tests that each triple component changes the id.
func TestChunkID_DistinguishesInputs(t *testing.T) {
	base := ChunkID("boxing", "footwork.md", 0)

	if ChunkID("crossfit", "footwork.md", 0) == base {
		t.Error("Different category should change the id")
	}
	if ChunkID("boxing", "defense.md", 0) == base {
		t.Error("Different source should change the id")
	}
	if ChunkID("boxing", "footwork.md", 1) == base {
		t.Error("Different chunk index should change the id")
	}
}

// TestChunkID_IsValidUUID tests that ids parse as UUIDs, which both store
// backends rely on for point ids.
func TestChunkID_IsValidUUID(t *testing.T) {
	id := ChunkID("nutrition", "protein basics.txt", 3)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("ChunkID %q is not a valid UUID: %v", id, err)
	}
}

// TestFingerprint_Matches tests that category drift alone does not count as a
// configuration change.
func TestFingerprint_Matches(t *testing.T) {
	base := Fingerprint{
		ModelID:      "openai/text-embedding-3-small",
		Dimension:    1536,
		ChunkSize:    500,
		ChunkOverlap: 50,
		Categories:   []string{"boxing"},
	}

	same := base
	same.Categories = []string{"boxing", "crossfit"}
	if !base.Matches(same) {
		t.Error("Category drift should not break a fingerprint match")
	}

	cases := []struct {
		name   string
		mutate func(*Fingerprint)
	}{
		{"model", func(f *Fingerprint) { f.ModelID = "ollama/nomic-embed-text" }},
		{"dimension", func(f *Fingerprint) { f.Dimension = 768 }},
		{"chunk size", func(f *Fingerprint) { f.ChunkSize = 400 }},
		{"overlap", func(f *Fingerprint) { f.ChunkOverlap = 0 }},
	}
	for _, tc := range cases {
		changed := base
		tc.mutate(&changed)
		if base.Matches(changed) {
			t.Errorf("Changed %s should break the fingerprint match", tc.name)
		}
	}
}

// TestCosineDistance tests the distance semantics the ranking depends on.
func TestCosineDistance(t *testing.T) {
	if d := cosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("Identical direction: expected 0, got %f", d)
	}
	if d := cosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("Orthogonal: expected 1, got %f", d)
	}
	if d := cosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("Opposite: expected 2, got %f", d)
	}
	if d := cosineDistance([]float32{0, 0}, []float32{1, 0}); math.Abs(d-1) > 1e-9 {
		t.Errorf("Zero vector: expected 1, got %f", d)
	}

	// Magnitude does not affect direction.
	if d := cosineDistance([]float32{2, 0}, []float32{7, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("Scaled identical direction: expected 0, got %f", d)
	}
}

// TestFloat32BlobRoundTrip tests the embedding blob encoding.
func TestFloat32BlobRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.14159, -0.0001}
	got := bytesToFloat32Slice(float32SliceToBytes(vec))
	if len(got) != len(vec) {
		t.Fatalf("Expected %d values, got %d", len(vec), len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("Value %d: expected %f, got %f", i, vec[i], got[i])
		}
	}
}
