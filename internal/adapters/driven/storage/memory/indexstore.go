package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
type IndexStore struct {
	mu    sync.RWMutex
	files map[string]domain.FileMetadata
	chunk map[string][]domain.Chunk
	rows  map[string][]domain.TabularRow
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		files: make(map[string]domain.FileMetadata),
		chunk: make(map[string][]domain.Chunk),
		rows:  make(map[string][]domain.TabularRow),
	}
}

// UpsertFile replaces everything stored for meta.FileID.
func (s *IndexStore) UpsertFile(
	_ context.Context,
	meta domain.FileMetadata,
	chunks []domain.Chunk,
	rows []domain.TabularRow,
) error {
	if meta.FileID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[meta.FileID] = meta
	s.chunk[meta.FileID] = append([]domain.Chunk(nil), chunks...)
	s.rows[meta.FileID] = append([]domain.TabularRow(nil), rows...)
	return nil
}

// DeleteFile removes everything stored for a file. Unknown IDs are a no-op.
func (s *IndexStore) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	delete(s.chunk, fileID)
	delete(s.rows, fileID)
	return nil
}

// FileIDs returns the identifiers of all indexed files, sorted.
func (s *IndexStore) FileIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *IndexStore) Close() error {
	return nil
}

// Metadata returns the stored metadata for a file, for test assertions.
func (s *IndexStore) Metadata(fileID string) (domain.FileMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.files[fileID]
	return meta, ok
}

// Chunks returns the stored chunks for a file, for test assertions.
func (s *IndexStore) Chunks(fileID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunk[fileID]...)
}

// Rows returns the stored tabular rows for a file, for test assertions.
func (s *IndexStore) Rows(fileID string) []domain.TabularRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TabularRow(nil), s.rows[fileID]...)
}
