// Package chunker splits extracted text into overlapping word windows.
package chunker

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize = 500 // words
	DefaultOverlap   = 50  // words
)

// Chunker emits fixed-size word windows with a fixed overlap between
// consecutive windows. It is stateless and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window geometry up front: an overlap at or above the
// chunk size gives a non-positive stride and the windowing loop would never
// advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in (0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text on whitespace and joins each window of words with
// single spaces, left to right. Windows that are empty after trimming are
// skipped. An empty or all-whitespace text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	stride := c.size - c.overlap
	for start := 0; start < len(words); start += stride {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
