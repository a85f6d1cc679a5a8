package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// chunkDocument is the JSONB metadata written with each chunk row.
// The embedded fields use the index schema names; file_id is what
// deletes and orphan detection key on.
type chunkDocument struct {
	domain.ChunkMetadata
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// UpsertFile replaces everything stored for meta.FileID in a single
// transaction: prior chunk and tabular rows are deleted, metadata is
// upserted, and the new revision inserted via one batch round trip.
func (s *indexStore) UpsertFile(
	ctx context.Context,
	meta domain.FileMetadata,
	chunks []domain.Chunk,
	rows []domain.TabularRow,
) error {
	if meta.FileID == "" {
		return domain.ErrInvalidInput
	}

	schemaJSON, err := schemaToJSON(meta.Schema)
	if err != nil {
		return err
	}

	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Clear the prior revision first so a smaller chunk set never
	// leaves stale trailing chunks behind.
	if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE metadata->>'file_id' = $1", meta.FileID); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM document_rows WHERE dataset_id = $1", meta.FileID); err != nil {
		return fmt.Errorf("deleting stale rows: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO document_metadata (id, title, url, mime_type, source, schema, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			mime_type = EXCLUDED.mime_type,
			source = EXCLUDED.source,
			schema = EXCLUDED.schema,
			modified_at = EXCLUDED.modified_at,
			updated_at = now()
	`, meta.FileID, meta.Title, meta.URL, meta.MIMEType, string(meta.Source),
		schemaJSON, nullableTime(meta.ModifiedAt))
	if err != nil {
		return fmt.Errorf("saving file metadata: %w", err)
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		doc := chunkDocument{
			ChunkMetadata: chunk.Metadata,
			ChunkID:       chunk.ID,
			ChunkIndex:    chunk.Index,
		}
		metadataJSON, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		var embedding interface{}
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		batch.Queue(
			"INSERT INTO documents (content, metadata, embedding) VALUES ($1, $2, $3)",
			chunk.Content, string(metadataJSON), embedding,
		)
	}
	for _, row := range rows {
		rowJSON, err := json.Marshal(row.Data)
		if err != nil {
			return fmt.Errorf("marshalling row data: %w", err)
		}
		batch.Queue(
			"INSERT INTO document_rows (dataset_id, position, row_data) VALUES ($1, $2, $3)",
			meta.FileID, row.Index, string(rowJSON),
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting chunks and rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteFile removes chunks, metadata and tabular rows for a file in
// one transaction. Deleting an unknown file_id is a no-op.
func (s *indexStore) DeleteFile(ctx context.Context, fileID string) error {
	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE metadata->>'file_id' = $1", fileID); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", fileID, err)
	}
	// Rows cascade with the metadata record
	if _, err := tx.Exec(ctx, "DELETE FROM document_metadata WHERE id = $1", fileID); err != nil {
		return fmt.Errorf("deleting metadata for %s: %w", fileID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FileIDs returns the identifiers of all indexed files, sorted. The
// metadata table is authoritative so files whose extraction produced
// zero chunks still count as indexed.
func (s *indexStore) FileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.pool.Query(ctx, "SELECT id FROM document_metadata ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying file ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file ids: %w", err)
	}

	return ids, nil
}

// Close releases the shared connection pool. The state store handed
// out by the same Store shares it, so close once at shutdown.
func (s *indexStore) Close() error {
	return s.store.Close()
}
