package driven

// Splitter divides extracted text into bounded-size chunks. Chunk size
// and overlap are fixed at construction, so one pipeline instance
// produces uniformly bounded chunks for its whole lifetime.
type Splitter interface {
	// Split returns the ordered chunk texts for the input. Empty or
	// whitespace-only input yields no chunks.
	Split(text string) []string
}
