package chunker

import (
	"errors"
	"strings"
	"testing"
)

// TestNewSplitter_RejectsBadOverlap tests constructor validation.
func TestNewSplitter_RejectsBadOverlap(t *testing.T) {
	if _, err := NewSplitter(100, 100); !errors.Is(err, ErrOverlapTooLarge) {
		t.Errorf("overlap == chunk size: expected ErrOverlapTooLarge, got %v", err)
	}
	if _, err := NewSplitter(100, 150); !errors.Is(err, ErrOverlapTooLarge) {
		t.Errorf("overlap > chunk size: expected ErrOverlapTooLarge, got %v", err)
	}
	if _, err := NewSplitter(100, -1); !errors.Is(err, ErrOverlapTooLarge) {
		t.Errorf("negative overlap: expected ErrOverlapTooLarge, got %v", err)
	}
	if _, err := NewSplitter(0, 0); err == nil {
		t.Error("zero chunk size: expected error, got nil")
	}
	if _, err := NewSplitter(100, 0); err != nil {
		t.Errorf("zero overlap is valid, got %v", err)
	}
}

// TestSplit_EmptyDocument tests that an empty document yields no chunks.
func TestSplit_EmptyDocument(t *testing.T) {
	s, err := NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	if chunks := s.Split(""); len(chunks) != 0 {
		t.Errorf("Expected 0 chunks for empty document, got %d", len(chunks))
	}
}

// TestSplit_ShortDocument tests that a document within the budget is one chunk.
func TestSplit_ShortDocument(t *testing.T) {
	s, err := NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	text := strings.Repeat("a", 400)
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Error("Single chunk should equal the input document")
	}
}

// TestSplit_LongDocument tests the chunk count for a uniform document.
func TestSplit_LongDocument(t *testing.T) {
	s, err := NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	// 1200 chars with no separators: cuts at 500 and 950, tail of 300.
	text := strings.Repeat("a", 1200)
	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > 500 {
			t.Errorf("Chunk %d exceeds budget: %d chars", i, len(chunk))
		}
	}
}

// TestSplit_OverlapBetweenChunks tests that consecutive chunks share the
// configured overlap.
func TestSplit_OverlapBetweenChunks(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	// Separator-free input forces hard cuts, so every seam keeps the overlap.
	text := ""
	for i := 0; i < 30; i++ {
		text += strings.Repeat(string(rune('a'+i%26)), 10)
	}

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-20:]
		nextHead := chunks[i][:20]
		if prevTail != nextHead {
			t.Errorf("Seam %d: tail %q != head %q", i, prevTail, nextHead)
		}
	}
}

// TestSplit_RoundTrip tests that chunks minus their overlaps reconstruct the
// original document.
func TestSplit_RoundTrip(t *testing.T) {
	s, err := NewSplitter(80, 15)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	text := strings.Repeat("0123456789", 50)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	rebuilt := chunks[0]
	for _, chunk := range chunks[1:] {
		rebuilt += chunk[15:]
	}
	if rebuilt != text {
		t.Errorf("Reconstruction mismatch: got %d chars, want %d", len(rebuilt), len(text))
	}
}

// TestSplit_PrefersParagraphBoundary tests that cuts land on natural breaks.
func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	s, err := NewSplitter(100, 10)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	text := strings.Repeat("b", 60) + "\n\n" + strings.Repeat("c", 200)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("First chunk should end at the paragraph break, got %q", chunks[0][len(chunks[0])-5:])
	}
}

// TestSplit_PrefersWordBoundary tests that prose is cut between words.
func TestSplit_PrefersWordBoundary(t *testing.T) {
	s, err := NewSplitter(40, 5)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	text := strings.Repeat("squat press deadlift row ", 10)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// Every chunk except the last ends on a word break.
	for i := 0; i < len(chunks)-1; i++ {
		if !strings.HasSuffix(chunks[i], " ") {
			t.Errorf("Chunk %d does not end on a word boundary: %q", i, chunks[i])
		}
	}
}

// TestSplit_ChunksAreSubstrings tests that chunking never rewrites content.
func TestSplit_ChunksAreSubstrings(t *testing.T) {
	s, err := NewSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	text := "Warm up thoroughly before sparring.\n\nShadowbox three rounds, then work the heavy bag.\nFinish with footwork drills and stretching."
	for i, chunk := range s.Split(text) {
		if !strings.Contains(text, chunk) {
			t.Errorf("Chunk %d is not a substring of the input: %q", i, chunk)
		}
	}
}
