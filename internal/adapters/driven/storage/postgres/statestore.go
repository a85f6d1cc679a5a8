package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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
	row := s.store.pool.QueryRow(ctx, `
		SELECT pipeline_id, pipeline_type, known_files, last_check_time, last_run
		FROM rag_pipeline_state WHERE pipeline_id = $1
	`, pipelineID)

	var state domain.SyncState
	var pipelineType string
	var knownJSON []byte
	var lastCheck, lastRun *time.Time
	if err := row.Scan(&state.PipelineID, &pipelineType, &knownJSON, &lastCheck, &lastRun); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning pipeline state: %w", err)
	}

	state.PipelineType = domain.PipelineType(pipelineType)
	state.LastCheckTime = timeOrZero(lastCheck)
	state.LastRun = timeOrZero(lastRun)

	if len(knownJSON) > 0 && string(knownJSON) != jsonNull {
		if err := json.Unmarshal(knownJSON, &state.KnownFiles); err != nil {
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

	_, err = s.store.pool.Exec(ctx, `
		INSERT INTO rag_pipeline_state (pipeline_id, pipeline_type, known_files, last_check_time, last_run)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pipeline_id) DO UPDATE SET
			pipeline_type = EXCLUDED.pipeline_type,
			known_files = EXCLUDED.known_files,
			last_check_time = EXCLUDED.last_check_time,
			last_run = EXCLUDED.last_run,
			updated_at = now()
	`, state.PipelineID, string(state.PipelineType), string(knownJSON),
		nullableTime(state.LastCheckTime), nullableTime(state.LastRun))

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

	_, err = s.store.pool.Exec(ctx, `
		INSERT INTO rag_pipeline_state (pipeline_id, pipeline_type, server_status, status_details, last_heartbeat)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (pipeline_id) DO UPDATE SET
			server_status = EXCLUDED.server_status,
			status_details = EXCLUDED.status_details,
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at = now()
	`, pipelineID, string(details.PipelineType), serverStatus, string(detailsJSON))

	if err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	return nil
}
