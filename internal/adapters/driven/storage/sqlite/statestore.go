package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// stateStore implements driven.StateStore.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Load retrieves the persisted state for a pipeline.
// Returns domain.ErrNotFound before the first Save.
func (s *stateStore) Load(ctx context.Context, pipelineID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT pipeline_id, pipeline_type, known_files, last_check_time, last_run
		FROM rag_pipeline_state WHERE pipeline_id = ?
	`, pipelineID)

	var state domain.SyncState
	var pipelineType, knownJSON string
	var lastCheck, lastRun sql.NullString
	if err := row.Scan(&state.PipelineID, &pipelineType, &knownJSON, &lastCheck, &lastRun); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning pipeline state: %w", err)
	}

	state.PipelineType = domain.PipelineType(pipelineType)
	state.LastCheckTime = parseNullableTime(lastCheck)
	state.LastRun = parseNullableTime(lastRun)

	if knownJSON != "" && knownJSON != jsonNull {
		if err := json.Unmarshal([]byte(knownJSON), &state.KnownFiles); err != nil {
			return nil, fmt.Errorf("unmarshalling known files: %w", err)
		}
	}
	if state.KnownFiles == nil {
		state.KnownFiles = domain.KnownFilesSnapshot{}
	}

	return &state, nil
}

// Save persists a pipeline's snapshot and check times. The heartbeat
// columns are left alone so Save and Heartbeat never clobber each
// other's writes.
func (s *stateStore) Save(ctx context.Context, state domain.SyncState) error {
	if state.PipelineID == "" {
		return domain.ErrInvalidInput
	}

	known := state.KnownFiles
	if known == nil {
		known = domain.KnownFilesSnapshot{}
	}
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return fmt.Errorf("marshalling known files: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rag_pipeline_state (pipeline_id, pipeline_type, known_files, last_check_time, last_run, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pipeline_id) DO UPDATE SET
			pipeline_type = excluded.pipeline_type,
			known_files = excluded.known_files,
			last_check_time = excluded.last_check_time,
			last_run = excluded.last_run,
			updated_at = excluded.updated_at
	`, state.PipelineID, string(state.PipelineType), string(knownJSON),
		formatNullableTime(state.LastCheckTime), formatNullableTime(state.LastRun),
		time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving pipeline state: %w", err)
	}
	return nil
}

// Heartbeat records liveness for a pipeline: server status, a JSON
// snapshot of the run state, and the heartbeat timestamp. The snapshot
// columns written by Save are preserved.
func (s *stateStore) Heartbeat(
	ctx context.Context,
	pipelineID string,
	serverStatus string,
	details domain.RunState,
) error {
	if pipelineID == "" {
		return domain.ErrInvalidInput
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshalling status details: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rag_pipeline_state (pipeline_id, pipeline_type, known_files, server_status, status_details, last_heartbeat, updated_at)
		VALUES (?, ?, '{}', ?, ?, ?, ?)
		ON CONFLICT(pipeline_id) DO UPDATE SET
			server_status = excluded.server_status,
			status_details = excluded.status_details,
			last_heartbeat = excluded.last_heartbeat,
			updated_at = excluded.updated_at
	`, pipelineID, string(details.PipelineType), serverStatus, string(detailsJSON),
		time.Now().UTC().Format(time.RFC3339Nano), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	return nil
}
