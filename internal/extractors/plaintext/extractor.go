// Package plaintext extracts text from plain-text documents.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain-text content. Bytes that are not valid UTF-8
// are decoded as Latin-1 so that legacy files still produce usable text
// instead of replacement-rune noise.
type Extractor struct{}

// New creates a plain-text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
	}
}

// Extract decodes the file content as text.
func (e *Extractor) Extract(
	_ context.Context,
	content *domain.FileContent,
	_ domain.SourceFile,
) (*driven.ExtractResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	return &driven.ExtractResult{
		Text: decode(content.Data),
	}, nil
}

// decode interprets raw bytes as UTF-8, falling back to Latin-1 when the
// data is not valid UTF-8. Latin-1 maps every byte to the code point of
// the same value, so the fallback never fails.
func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}
