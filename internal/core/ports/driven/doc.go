// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a pipeline to function:
//
//   - SourceWatcher: Enumerates and fetches files from a watched source
//   - ExtractorRegistry: Per-MIME-type text extraction
//   - Splitter: Bounded-size text chunking
//   - EmbeddingService: Generates vector embeddings for chunks
//   - IndexStore: Chunk/metadata/row persistence with replace-all upserts
//   - StateStore: Snapshot and heartbeat persistence, keyed by pipeline ID
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, watcher, or extractor package
package driven
