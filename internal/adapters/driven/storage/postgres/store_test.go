package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// testDSNEnv names the environment variable holding the DSN of a
// throwaway postgres database with the pgvector extension available.
const testDSNEnv = "RAGSYNC_TEST_DATABASE_URL"

// setupTestStore connects to the test database and wipes the tables.
// Tests are skipped when no test database is configured.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres integration tests", testDSNEnv)
	}

	ctx := context.Background()
	store, err := NewStore(ctx, Config{DSN: dsn, Dimensions: 4})
	require.NoError(t, err)
	require.NotNil(t, store)

	truncate := func() {
		for _, table := range []string{"documents", "document_rows", "document_metadata", "rag_pipeline_state"} {
			_, err := store.pool.Exec(ctx, "DELETE FROM "+table)
			require.NoError(t, err)
		}
	}
	truncate()

	cleanup := func() {
		truncate()
		assert.NoError(t, store.Close())
	}

	return store, cleanup
}

// testFileMetadata builds metadata for a text file.
func testFileMetadata(fileID string) domain.FileMetadata {
	return domain.FileMetadata{
		FileID:     fileID,
		Title:      "Report " + fileID,
		URL:        "https://example.com/" + fileID,
		MIMEType:   "text/plain",
		Source:     domain.PipelineGoogleDrive,
		ModifiedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// testChunks builds n sequential chunks with 4-dimension embeddings.
func testChunks(fileID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:        fmt.Sprintf("%s-chunk-%d", fileID, i),
			FileID:    fileID,
			Index:     i,
			Content:   fmt.Sprintf("chunk %d of %s", i, fileID),
			Embedding: []float32{float32(i), 0.5, -0.5, 1.0},
			Metadata: domain.ChunkMetadata{
				FileID:   fileID,
				FileName: "Report " + fileID,
				MIMEType: "text/plain",
				Source:   string(domain.PipelineGoogleDrive),
			},
		}
	}
	return chunks
}

// chunkCount returns the number of chunk rows stored for a file.
func chunkCount(t *testing.T, store *Store, fileID string) int {
	t.Helper()
	var count int
	err := store.pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM documents WHERE metadata->>'file_id' = $1", fileID).Scan(&count)
	require.NoError(t, err)
	return count
}

// rowCount returns the number of tabular rows stored for a file.
func rowCount(t *testing.T, store *Store, fileID string) int {
	t.Helper()
	var count int
	err := store.pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM document_rows WHERE dataset_id = $1", fileID).Scan(&count)
	require.NoError(t, err)
	return count
}

// ==================== IndexStore Tests ====================

func TestIndexStore_UpsertFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	indexStore := store.IndexStore()

	meta := domain.FileMetadata{
		FileID:     "file-1",
		Title:      "Quarterly Sales",
		URL:        "https://example.com/file-1",
		MIMEType:   "text/csv",
		Source:     domain.PipelineGoogleDrive,
		Schema:     []string{"product", "price"},
		ModifiedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	rows := []domain.TabularRow{
		{FileID: "file-1", Index: 0, Data: map[string]any{"product": "widget", "price": 9.99}},
		{FileID: "file-1", Index: 1, Data: map[string]any{"product": "gadget", "price": 4.5}},
	}

	err := indexStore.UpsertFile(ctx, meta, testChunks("file-1", 3), rows)
	require.NoError(t, err)

	assert.Equal(t, 3, chunkCount(t, store, "file-1"))
	assert.Equal(t, 2, rowCount(t, store, "file-1"))

	// Verify the metadata row
	var title, source string
	var schemaJSON *string
	err = store.pool.QueryRow(ctx,
		"SELECT title, source, schema FROM document_metadata WHERE id = $1", "file-1",
	).Scan(&title, &source, &schemaJSON)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Sales", title)
	assert.Equal(t, "google_drive", source)
	require.NotNil(t, schemaJSON)
	assert.JSONEq(t, `["product","price"]`, *schemaJSON)

	// Chunk metadata JSONB carries the file_id and chunk identity
	var metadataJSON []byte
	err = store.pool.QueryRow(ctx, `
		SELECT metadata FROM documents
		WHERE metadata->>'file_id' = $1 AND (metadata->>'chunk_index')::int = 0
	`, "file-1").Scan(&metadataJSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(metadataJSON, &decoded))
	assert.Equal(t, "file-1", decoded["file_id"])
	assert.Equal(t, "file-1-chunk-0", decoded["chunk_id"])
}

func TestIndexStore_UpsertFile_ReplacesPriorRevision(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	indexStore := store.IndexStore()
	meta := testFileMetadata("file-1")

	rows := []domain.TabularRow{{FileID: "file-1", Index: 0, Data: map[string]any{"a": "1"}}}
	require.NoError(t, indexStore.UpsertFile(ctx, meta, testChunks("file-1", 5), rows))
	require.Equal(t, 5, chunkCount(t, store, "file-1"))

	// The file shrank to two chunks and no rows
	require.NoError(t, indexStore.UpsertFile(ctx, meta, testChunks("file-1", 2), nil))

	assert.Equal(t, 2, chunkCount(t, store, "file-1"))
	assert.Equal(t, 0, rowCount(t, store, "file-1"))

	// Metadata was updated, not duplicated
	var count int
	err := store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM document_metadata WHERE id = $1", "file-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexStore_UpsertFile_EmptyFileID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.IndexStore().UpsertFile(context.Background(), domain.FileMetadata{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexStore_DeleteFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	indexStore := store.IndexStore()

	rows := []domain.TabularRow{{FileID: "file-1", Index: 0, Data: map[string]any{"a": "1"}}}
	require.NoError(t, indexStore.UpsertFile(ctx, testFileMetadata("file-1"), testChunks("file-1", 3), rows))
	require.NoError(t, indexStore.UpsertFile(ctx, testFileMetadata("file-2"), testChunks("file-2", 2), nil))

	require.NoError(t, indexStore.DeleteFile(ctx, "file-1"))

	assert.Equal(t, 0, chunkCount(t, store, "file-1"))
	assert.Equal(t, 0, rowCount(t, store, "file-1"))
	assert.Equal(t, 2, chunkCount(t, store, "file-2"))

	ids, err := indexStore.FileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"file-2"}, ids)
}

func TestIndexStore_DeleteFile_Unknown(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.IndexStore().DeleteFile(context.Background(), "never-seen")
	assert.NoError(t, err)
}

func TestIndexStore_FileIDs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	indexStore := store.IndexStore()

	ids, err := indexStore.FileIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, indexStore.UpsertFile(ctx, testFileMetadata("file-b"), testChunks("file-b", 1), nil))
	require.NoError(t, indexStore.UpsertFile(ctx, testFileMetadata("file-a"), testChunks("file-a", 1), nil))
	// Zero-chunk files still count as indexed
	require.NoError(t, indexStore.UpsertFile(ctx, testFileMetadata("file-c"), nil, nil))

	ids, err = indexStore.FileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"file-a", "file-b", "file-c"}, ids)
}

// ==================== StateStore Tests ====================

func TestStateStore_Load_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.StateStore().Load(context.Background(), "unknown-pipeline")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStateStore_SaveAndLoad(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	stateStore := store.StateStore()

	now := time.Now().UTC().Truncate(time.Second)
	state := domain.SyncState{
		PipelineID:   "drive-pipeline",
		PipelineType: domain.PipelineGoogleDrive,
		KnownFiles: domain.KnownFilesSnapshot{
			"file-1": {ModifiedAt: now.Add(-time.Hour)},
		},
		LastCheckTime: now,
		LastRun:       now.Add(-time.Minute),
	}
	require.NoError(t, stateStore.Save(ctx, state))

	loaded, err := stateStore.Load(ctx, "drive-pipeline")
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineGoogleDrive, loaded.PipelineType)
	assert.Len(t, loaded.KnownFiles, 1)
	assert.True(t, loaded.KnownFiles["file-1"].ModifiedAt.Equal(now.Add(-time.Hour)))
	assert.True(t, loaded.LastCheckTime.Equal(now))
	assert.True(t, loaded.LastRun.Equal(now.Add(-time.Minute)))
}

func TestStateStore_Heartbeat(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	stateStore := store.StateStore()

	now := time.Now().UTC().Truncate(time.Second)
	state := domain.SyncState{
		PipelineID:   "drive-pipeline",
		PipelineType: domain.PipelineGoogleDrive,
		KnownFiles:   domain.KnownFilesSnapshot{"file-1": {ModifiedAt: now}},
	}
	require.NoError(t, stateStore.Save(ctx, state))

	details := domain.RunState{
		PipelineID:   "drive-pipeline",
		PipelineType: domain.PipelineGoogleDrive,
		Status:       domain.StatusIdle,
	}
	require.NoError(t, stateStore.Heartbeat(ctx, "drive-pipeline", domain.ServerOnline, details))

	// Liveness columns are written
	var serverStatus string
	var detailsJSON []byte
	var heartbeat *time.Time
	err := store.pool.QueryRow(ctx, `
		SELECT server_status, status_details, last_heartbeat
		FROM rag_pipeline_state WHERE pipeline_id = $1
	`, "drive-pipeline").Scan(&serverStatus, &detailsJSON, &heartbeat)
	require.NoError(t, err)
	assert.Equal(t, "online", serverStatus)
	require.NotNil(t, heartbeat)
	assert.WithinDuration(t, time.Now().UTC(), *heartbeat, 10*time.Second)

	var decoded domain.RunState
	require.NoError(t, json.Unmarshal(detailsJSON, &decoded))
	assert.Equal(t, domain.StatusIdle, decoded.Status)

	// The snapshot written by Save must survive the heartbeat
	loaded, err := stateStore.Load(ctx, "drive-pipeline")
	require.NoError(t, err)
	assert.Len(t, loaded.KnownFiles, 1)
}
