package domain

import "time"

// PipelineStatus is the lifecycle state of a pipeline instance.
type PipelineStatus string

const (
	// StatusOffline means the pipeline process is not running.
	StatusOffline PipelineStatus = "offline"
	// StatusStarting means the pipeline is initialising.
	StatusStarting PipelineStatus = "starting"
	// StatusIdle means the pipeline is waiting for the next check.
	StatusIdle PipelineStatus = "idle"
	// StatusChecking means a sync cycle is in progress.
	StatusChecking PipelineStatus = "checking"
	// StatusError means the last cycle aborted.
	StatusError PipelineStatus = "error"
)

// Server status values persisted by the heartbeat.
const (
	ServerOnline  = "online"
	ServerOffline = "offline"
)

// Bounds on the recent-activity lists kept in RunState.
const (
	MaxCompletedHistory = 10
	MaxFailedHistory    = 5
)

// FileActivity records one file moving through the pipeline.
type FileActivity struct {
	Name        string    `json:"name"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// RunState is the observable state of one pipeline instance.
// It is mutated only by the status tracker under a single lock and
// handed out as a deep copy, so readers never share mutable state
// with the processing loop.
type RunState struct {
	PipelineID   string         `json:"pipeline_id"`
	PipelineType PipelineType   `json:"pipeline_type"`
	Status       PipelineStatus `json:"status"`

	LastCheckTime time.Time `json:"last_check_time,omitzero"`
	NextCheckTime time.Time `json:"next_check_time,omitzero"`
	CheckInterval float64   `json:"check_interval"`
	IsChecking    bool      `json:"is_checking"`

	FilesProcessing []FileActivity `json:"files_processing"`
	FilesCompleted  []FileActivity `json:"files_completed"`
	FilesFailed     []FileActivity `json:"files_failed"`

	TotalProcessed int `json:"total_processed"`
	TotalFailed    int `json:"total_failed"`

	StartedAt    time.Time `json:"started_at,omitzero"`
	LastActivity time.Time `json:"last_activity,omitzero"`

	// SecondsUntilNextCheck is derived from NextCheckTime at snapshot
	// time; negative values are clamped to zero.
	SecondsUntilNextCheck float64 `json:"seconds_until_next_check"`
}

// Clone returns a deep copy of the run state.
func (s RunState) Clone() RunState {
	out := s
	out.FilesProcessing = append([]FileActivity(nil), s.FilesProcessing...)
	out.FilesCompleted = append([]FileActivity(nil), s.FilesCompleted...)
	out.FilesFailed = append([]FileActivity(nil), s.FilesFailed...)
	return out
}

// CycleStats aggregates the outcome of one sync cycle.
type CycleStats struct {
	FilesProcessed int           `json:"files_processed"`
	FilesDeleted   int           `json:"files_deleted"`
	Errors         int           `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// Add folds another cycle's stats into this one.
func (s *CycleStats) Add(other CycleStats) {
	s.FilesProcessed += other.FilesProcessed
	s.FilesDeleted += other.FilesDeleted
	s.Errors += other.Errors
	s.Duration += other.Duration
}
