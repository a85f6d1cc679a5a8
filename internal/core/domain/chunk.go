package domain

import "time"

// Chunk is a bounded-size span of a file's extracted text, the unit
// of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// FileID links the chunk to its source file.
	FileID string

	// Index is the 0-based, contiguous, order-preserving position of
	// the chunk within its file. Re-processing a file fully replaces
	// the prior chunk set, so indexes never have gaps or duplicates.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the fixed-dimension vector for semantic search.
	Embedding []float32

	// Metadata describes the chunk's origin.
	Metadata ChunkMetadata
}

// ChunkMetadata tags a chunk with where it came from. The JSON names
// match the index schema so stores can persist it directly.
type ChunkMetadata struct {
	FileID     string    `json:"file_id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url,omitempty"`
	MIMEType   string    `json:"mime_type"`
	Source     string    `json:"source"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FileMetadata is the one-per-file index record.
type FileMetadata struct {
	// FileID is the stable file identifier.
	FileID string

	// Title is the display name of the file.
	Title string

	// URL is where a human can open the file.
	URL string

	// MIMEType is the effective MIME type the file was extracted as.
	MIMEType string

	// Source tags the watcher origin (google_drive or local_files).
	Source PipelineType

	// Schema lists column names for tabular files; nil otherwise.
	Schema []string

	// ModifiedAt is the source modification time at indexing.
	ModifiedAt time.Time
}

// TabularRow is one structured row of a spreadsheet or CSV file.
// Rows are stored independently of chunks since tabular data is
// retrieved by row, not by semantic chunk.
type TabularRow struct {
	// FileID links the row to its source file.
	FileID string

	// Index is the 0-based row position within the file.
	Index int

	// Data maps column name to cell value.
	Data map[string]any
}
