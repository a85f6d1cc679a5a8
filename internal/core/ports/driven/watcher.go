package driven

import (
	"context"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// WatcherCapabilities describes what a watcher variant supports.
type WatcherCapabilities struct {
	// SupportsWatch indicates the watcher can emit change hints
	// between polls (filesystem events). Hint channels are advisory:
	// every cycle still performs a full enumeration and diff.
	SupportsWatch bool
}

// SourceWatcher enumerates files from one watched source and fetches
// their content. Implementations: Google Drive folder, local directory
// tree. The variant is selected by configuration, never by runtime
// type inspection.
type SourceWatcher interface {
	// Type returns the pipeline type this watcher feeds.
	Type() domain.PipelineType

	// PipelineID returns the pipeline instance this watcher belongs to.
	PipelineID() string

	// Capabilities returns what this watcher supports.
	Capabilities() WatcherCapabilities

	// Validate checks connectivity and configuration (directory exists,
	// credentials accepted, folder reachable). Called once at startup;
	// failures are fatal configuration errors.
	Validate(ctx context.Context) error

	// List returns the complete current enumeration of supported files.
	// A partial or failed listing MUST return an error (wrapping
	// domain.ErrSourceUnavailable when the source itself is unreachable),
	// never a truncated or empty set: the change detector would read an
	// empty result as "every file was deleted".
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Fetch downloads the content of one enumerated file. The returned
	// MIME type is the effective type after any source-side export.
	Fetch(ctx context.Context, file domain.SourceFile) (*domain.FileContent, error)

	// Close releases watcher resources.
	Close() error
}

// ChangeHinter is implemented by watchers that can signal "something
// changed" between polls. The continuous runner uses hints to wake
// early instead of waiting out the full check interval.
type ChangeHinter interface {
	// WatchHints starts event watching and returns a channel that
	// receives a signal whenever the underlying source reports changes.
	// The channel closes when ctx is cancelled.
	WatchHints(ctx context.Context) (<-chan struct{}, error)
}
