package extractors

import (
	"github.com/quarrylabs/ragsync/internal/extractors/pdf"
	"github.com/quarrylabs/ragsync/internal/extractors/plaintext"
	"github.com/quarrylabs/ragsync/internal/extractors/tabular"
)

// RegisterDefaults registers all built-in extractors with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(tabular.New())
	r.Register(pdf.New())
}

// NewDefaultRegistry creates a registry with all built-in extractors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
