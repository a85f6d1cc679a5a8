// Package domain defines the core business entities for ragsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceFile: A file as reported by a watched source
//   - KnownFilesSnapshot: The engine's last-known view of a source
//   - Chunk: A bounded span of extracted text with its embedding
//   - FileMetadata / TabularRow: Per-file index records
//   - RunState: The observable state of one pipeline instance
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
