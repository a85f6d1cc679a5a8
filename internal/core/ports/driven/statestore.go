package driven

import (
	"context"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// StateStore persists per-pipeline sync state and liveness. Records are
// keyed by pipeline ID so concurrent watcher processes (one per source)
// do not clobber each other's snapshots.
type StateStore interface {
	// Load returns the persisted state for a pipeline, or
	// domain.ErrNotFound before the first successful cycle.
	Load(ctx context.Context, pipelineID string) (*domain.SyncState, error)

	// Save persists the snapshot and check times. Called only after a
	// cycle's deletions have been issued, so a crash mid-cycle
	// re-derives the same delta instead of losing deletions.
	Save(ctx context.Context, state domain.SyncState) error

	// Heartbeat records liveness for external observers: server status
	// (online/offline), a JSON snapshot of the run state, and the
	// heartbeat timestamp. Staleness signals "crashed" as opposed to
	// "idle".
	Heartbeat(ctx context.Context, pipelineID string, serverStatus string, details domain.RunState) error
}
