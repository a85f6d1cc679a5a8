// Package chunker splits extracted text into bounded-size chunks.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultChunkSize is the default maximum chunk length in characters.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 0

// Chunker splits text into chunks of at most chunkSize characters,
// preferring whitespace boundaries. Chunk size and overlap are
// per-source configuration, not global constants.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured maximum chunk length.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Split divides text into ordered chunks. Control characters other
// than newline and tab are stripped first. Every returned chunk is at
// most chunkSize characters; boundaries prefer the last whitespace
// inside the window but a single over-long token is cut hard rather
// than allowed to exceed the bound.
func (c *Chunker) Split(text string) []string {
	runes := []rune(sanitise(text))
	total := len(runes)
	if total == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	chunks := make([]string, 0, total/step+1)

	start := 0
	for start < total {
		end := start + c.chunkSize
		if end >= total {
			end = total
		} else {
			end = boundary(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		next := end - c.overlap
		if next <= start {
			// Overlap would stall the scan; move past this chunk.
			next = end
		}
		start = next
	}

	return chunks
}

// boundary returns the cut position for the window runes[start:end],
// preferring the position just after the last whitespace rune. When
// the window contains no whitespace the hard limit wins.
func boundary(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// sanitise removes control characters that corrupt chunk text.
// Newlines and tabs survive; carriage returns and the rest do not.
func sanitise(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}
