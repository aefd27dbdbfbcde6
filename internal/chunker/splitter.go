// Package chunker splits documents into overlapping, size-bounded segments.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

var ErrOverlapTooLarge = errors.New("overlap must be smaller than chunk size")

// separators are tried in order when searching for a cut point: paragraph
// break, line break, word break. A hard character cut is the last resort.
var separators = []string{"\n\n", "\n", " "}

// Splitter produces overlapping chunks of at most ChunkSize characters,
// preferring natural boundaries over raw character cuts. Every chunk is a
// literal substring of the input, so concatenating chunks minus their
// overlaps reconstructs the original document.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. overlap must be non-negative and strictly
// smaller than chunkSize; anything else is a configuration error.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, chunk size %d", ErrOverlapTooLarge, overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured chunk budget in characters.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks text into ordered segments. An empty document yields zero
// chunks; a document within the budget yields exactly one.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		cut := s.findCut(text, start, end)
		chunks = append(chunks, text[start:cut])

		// The next window repeats the trailing overlap of this chunk. When a
		// boundary lands too close to the window start the overlap is dropped
		// for that seam to guarantee forward progress.
		next := cut - s.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// findCut picks the cut position within (start, end], trying each separator
// from the most to the least natural. The separator itself stays with the
// preceding chunk.
func (s *Splitter) findCut(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	return end
}
