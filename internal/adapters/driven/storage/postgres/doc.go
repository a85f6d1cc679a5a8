// Package postgres provides a pgvector-backed implementation of driven port interfaces.
//
// This adapter uses jackc/pgx/v5 with a connection pool and the
// pgvector-go codec for the embedding column. It implements both store
// interfaces through a single pool:
//
//   - IndexStore: chunk, file metadata and tabular row persistence
//   - StateStore: per-pipeline snapshot and heartbeat persistence
//
// # Schema
//
// The schema mirrors the production RAG layout consumed by downstream
// agents: documents (chunk content, JSONB metadata carrying file_id,
// vector embedding), document_metadata (one row per file, with the
// column schema for tabular files), document_rows (row_data JSONB
// keyed by dataset_id) and rag_pipeline_state. Tables and the vector
// extension are created on first connect; the embedding column width
// comes from the store config and must match the embedding model.
package postgres
