package services

import (
	"sync"
	"time"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// StatusTracker is the single mutable status object for one pipeline
// instance. The processing loop writes through it under one lock;
// readers only ever receive deep-copied snapshots, so a handler holding
// a snapshot never observes a half-applied transition.
type StatusTracker struct {
	mu    sync.Mutex
	state domain.RunState
}

// NewStatusTracker creates a tracker for a pipeline instance.
func NewStatusTracker(pipelineID string, pipelineType domain.PipelineType, checkInterval time.Duration) *StatusTracker {
	return &StatusTracker{
		state: domain.RunState{
			PipelineID:    pipelineID,
			PipelineType:  pipelineType,
			Status:        domain.StatusStarting,
			CheckInterval: checkInterval.Seconds(),
			StartedAt:     time.Now().UTC(),
		},
	}
}

// AddProcessing records that a file has entered the pipeline.
func (t *StatusTracker) AddProcessing(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	t.state.FilesProcessing = append(t.state.FilesProcessing, domain.FileActivity{
		Name:      name,
		StartedAt: now,
	})
	t.state.LastActivity = now
}

// Complete moves a file out of processing into the completed or failed
// list and increments the matching total. Completing a file that is not
// currently processing is a no-op, so a duplicate completion cannot
// corrupt the totals.
func (t *StatusTracker) Complete(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, activity := range t.state.FilesProcessing {
		if activity.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	activity := t.state.FilesProcessing[idx]
	t.state.FilesProcessing = append(t.state.FilesProcessing[:idx], t.state.FilesProcessing[idx+1:]...)

	now := time.Now().UTC()
	activity.CompletedAt = now
	t.state.LastActivity = now

	if err != nil {
		activity.Error = err.Error()
		t.state.FilesFailed = prepend(t.state.FilesFailed, activity, domain.MaxFailedHistory)
		t.state.TotalFailed++
		return
	}

	t.state.FilesCompleted = prepend(t.state.FilesCompleted, activity, domain.MaxCompletedHistory)
	t.state.TotalProcessed++
}

// SetStatus sets the pipeline lifecycle status.
func (t *StatusTracker) SetStatus(status domain.PipelineStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = status
}

// SetCheckTimes records when the last check ran and when the next one
// is due.
func (t *StatusTracker) SetCheckTimes(last, next time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.LastCheckTime = last
	t.state.NextCheckTime = next
}

// BeginCheck marks the start of a sync cycle.
func (t *StatusTracker) BeginCheck() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.IsChecking = true
	t.state.Status = domain.StatusChecking
	t.state.LastActivity = time.Now().UTC()
}

// EndCheck marks the end of a sync cycle and returns the pipeline to
// idle. A failed cycle should follow with SetStatus(StatusError).
func (t *StatusTracker) EndCheck() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.IsChecking = false
	t.state.Status = domain.StatusIdle
}

// Snapshot returns a deep copy of the current state with the derived
// countdown filled in.
func (t *StatusTracker) Snapshot() domain.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.state.Clone()
	if !snapshot.NextCheckTime.IsZero() {
		if until := time.Until(snapshot.NextCheckTime).Seconds(); until > 0 {
			snapshot.SecondsUntilNextCheck = until
		}
	}
	return snapshot
}

// prepend inserts the newest activity at the head and trims the list to
// the cap, so index 0 is always the most recent entry.
func prepend(list []domain.FileActivity, activity domain.FileActivity, limit int) []domain.FileActivity {
	list = append([]domain.FileActivity{activity}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
