// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements both store interfaces
// through a single database connection:
//
//   - IndexStore: chunk, file metadata and tabular row persistence
//   - StateStore: per-pipeline snapshot and heartbeat persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Chunk embeddings are stored as little-endian float32 blobs.
//
// # Data Location
//
// By default, the database is stored at ~/.ragsync/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
