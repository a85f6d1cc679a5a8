package driving

import (
	"context"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// PipelineRunner drives one source-to-index pipeline instance.
type PipelineRunner interface {
	// ID returns the pipeline instance identifier.
	ID() string

	// RunOnce performs exactly one sync cycle and returns its
	// statistics. Used by single-run mode.
	RunOnce(ctx context.Context) (domain.CycleStats, error)

	// Run performs an initial cycle, then loops on the configured
	// check interval until ctx is cancelled. The in-flight file is
	// allowed to finish on cancellation; the next cycle is skipped.
	Run(ctx context.Context) error

	// Status returns a deep-copied snapshot of the pipeline's state.
	Status() domain.RunState
}
