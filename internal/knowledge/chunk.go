package knowledge

import (
	"fmt"
	"strings"
)

// Default chunking knobs. 800 characters with 100 overlap keeps each
// window comfortably inside the embedder's input cap while preserving
// context across window boundaries.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Chunker splits long text into overlapping fixed-size windows for
// embedding. It is stateless and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the size/overlap relationship up front: an
// overlap >= size would produce non-advancing windows and never
// terminate, so it is rejected here rather than trusted to callers.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, size), got overlap=%d size=%d", ErrInvalidInput, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split normalizes whitespace to single spaces, trims, and cuts the text
// into windows of up to size characters advancing by size-overlap. The
// final window may be shorter; empty input produces no chunks.
func (c *Chunker) Split(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) <= c.size {
		return []string{normalized}
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		chunks = append(chunks, string(runes[start:end]))
	}
}
