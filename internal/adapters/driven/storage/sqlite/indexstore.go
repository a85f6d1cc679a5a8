package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// UpsertFile replaces everything stored for meta.FileID in a single
// transaction: prior chunks and tabular rows are deleted, metadata is
// upserted, and the new chunks and rows inserted. A failure at any
// step rolls the whole file back, so the index never holds a mix of
// two revisions.
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

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Clear the prior revision first so a smaller chunk set never
	// leaves stale trailing chunks behind.
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", meta.FileID); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_rows WHERE dataset_id = ?", meta.FileID); err != nil {
		return fmt.Errorf("deleting stale rows: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_metadata (file_id, title, url, mime_type, source, schema, modified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			mime_type = excluded.mime_type,
			source = excluded.source,
			schema = excluded.schema,
			modified_at = excluded.modified_at,
			updated_at = excluded.updated_at
	`, meta.FileID, meta.Title, meta.URL, meta.MIMEType, string(meta.Source),
		schemaJSON, formatNullableTime(meta.ModifiedAt), now, now)
	if err != nil {
		return fmt.Errorf("saving file metadata: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, file_id, position, content, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}

			embeddingBlob := float32SliceToBytes(chunk.Embedding)

			if _, err := stmt.ExecContext(ctx, chunk.ID, meta.FileID, chunk.Index,
				chunk.Content, embeddingBlob, string(metadataJSON)); err != nil {
				return fmt.Errorf("saving chunk %d: %w", chunk.Index, err)
			}
		}
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_rows (dataset_id, position, row_data)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing row insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			rowJSON, err := json.Marshal(row.Data)
			if err != nil {
				return fmt.Errorf("marshalling row data: %w", err)
			}

			if _, err := stmt.ExecContext(ctx, meta.FileID, row.Index, string(rowJSON)); err != nil {
				return fmt.Errorf("saving row %d: %w", row.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteFile removes the metadata row for a file; chunks and tabular
// rows go with it via ON DELETE CASCADE. Deleting an unknown file_id
// is a no-op.
func (s *indexStore) DeleteFile(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM document_metadata WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}
	return nil
}

// FileIDs returns the identifiers of all indexed files, sorted.
func (s *indexStore) FileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT file_id FROM document_metadata ORDER BY file_id")
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

// Close closes the shared database connection. The state store handed
// out by the same Store shares it, so close once at shutdown.
func (s *indexStore) Close() error {
	return s.store.Close()
}
