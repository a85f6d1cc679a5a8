package driven

import (
	"context"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// ExtractResult contains the output of content extraction.
// Text is the chunkable plain text. For tabular files, Schema and Rows
// carry the structured form alongside the flattened text summary.
type ExtractResult struct {
	// Text is the extracted plain text, ready for chunking.
	Text string

	// Schema lists column names for tabular content; nil otherwise.
	Schema []string

	// Rows holds structured rows for tabular content; nil otherwise.
	Rows []domain.TabularRow
}

// Extractor converts one family of MIME types into plain text.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract produces text (and rows, for tabular types) from the
	// fetched content. The file argument supplies identity metadata
	// for row records.
	Extract(ctx context.Context, content *domain.FileContent, file domain.SourceFile) (*ExtractResult, error)
}

// ExtractorRegistry dispatches extraction by normalised MIME type.
type ExtractorRegistry interface {
	// Register adds an extractor for its supported MIME types.
	Register(extractor Extractor)

	// Extract selects the extractor for the content's MIME type and
	// runs it. Returns domain.ErrUnsupportedType when no extractor
	// handles the type.
	Extract(ctx context.Context, content *domain.FileContent, file domain.SourceFile) (*ExtractResult, error)

	// Supports reports whether a MIME type has a registered extractor.
	Supports(mimeType string) bool

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
