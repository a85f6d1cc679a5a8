package driven

import (
	"context"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// IndexStore is the durable home of chunks, per-file metadata and
// tabular rows. Both pipelines of one process share a single store;
// their file_id spaces are disjoint, so concurrent upserts/deletes
// from sibling pipelines never touch the same rows.
type IndexStore interface {
	// UpsertFile replaces everything stored for meta.FileID in one
	// transaction: old chunks and rows are removed, metadata is
	// upserted, new chunks and rows inserted. After a successful call
	// no chunk of a prior revision remains, even when the new chunk
	// count is smaller.
	UpsertFile(ctx context.Context, meta domain.FileMetadata, chunks []domain.Chunk, rows []domain.TabularRow) error

	// DeleteFile removes chunks, metadata and rows for the file.
	// Deleting an unknown file_id is a no-op, not an error.
	DeleteFile(ctx context.Context, fileID string) error

	// FileIDs returns the identifiers of all upserted, non-deleted
	// files. Orphan detection diffs this set against the live source.
	FileIDs(ctx context.Context) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}
