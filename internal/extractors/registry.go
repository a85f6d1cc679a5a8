// Package extractors provides implementations of the Extractor interface
// for the document formats the pipelines ingest. Each extractor knows how
// to produce plain text from a specific family of MIME types.
//
// Extractors are registered with the Registry at startup; dispatch is by
// normalised MIME type with an explicit unsupported fallthrough.
package extractors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction by MIME type.
type Registry struct {
	byMIME map[string]driven.Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string]driven.Extractor),
	}
}

// Register adds an extractor for each of its supported MIME types.
// Later registrations win on conflict.
func (r *Registry) Register(extractor driven.Extractor) {
	for _, mimeType := range extractor.SupportedMIMETypes() {
		r.byMIME[NormaliseMIME(mimeType)] = extractor
	}
}

// Extract runs the extractor registered for the content's MIME type.
func (r *Registry) Extract(
	ctx context.Context,
	content *domain.FileContent,
	file domain.SourceFile,
) (*driven.ExtractResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	extractor, ok := r.byMIME[NormaliseMIME(content.MIMEType)]
	if !ok {
		return nil, fmt.Errorf("mime type %q: %w", content.MIMEType, domain.ErrUnsupportedType)
	}

	return extractor.Extract(ctx, content, file)
}

// Supports reports whether a MIME type has a registered extractor.
func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.byMIME[NormaliseMIME(mimeType)]
	return ok
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.byMIME))
	for mimeType := range r.byMIME {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}

// Restrict returns a registry limited to the allowed MIME types, for
// sources configured with an explicit allowlist. An empty allowlist
// returns the registry unchanged.
func (r *Registry) Restrict(allowed []string) *Registry {
	if len(allowed) == 0 {
		return r
	}

	want := make(map[string]struct{}, len(allowed))
	for _, mimeType := range allowed {
		want[NormaliseMIME(mimeType)] = struct{}{}
	}

	restricted := NewRegistry()
	for mimeType, extractor := range r.byMIME {
		if _, ok := want[mimeType]; ok {
			restricted.byMIME[mimeType] = extractor
		}
	}
	return restricted
}

// NormaliseMIME lowercases a MIME type and strips parameters, so
// "text/plain; charset=utf-8" dispatches the same as "text/plain".
func NormaliseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
