package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// HeartbeatRecord captures one Heartbeat call, for test assertions.
type HeartbeatRecord struct {
	PipelineID   string
	ServerStatus string
	Details      domain.RunState
	At           time.Time
}

// StateStore is an in-memory implementation of driven.StateStore.
type StateStore struct {
	mu         sync.RWMutex
	states     map[string]domain.SyncState
	heartbeats []HeartbeatRecord
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]domain.SyncState),
	}
}

// Load retrieves the persisted state for a pipeline.
func (s *StateStore) Load(_ context.Context, pipelineID string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[pipelineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	state.KnownFiles = state.KnownFiles.Clone()
	return &state, nil
}

// Save stores or updates a pipeline's state.
func (s *StateStore) Save(_ context.Context, state domain.SyncState) error {
	if state.PipelineID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state.KnownFiles = state.KnownFiles.Clone()
	s.states[state.PipelineID] = state
	return nil
}

// Heartbeat records a liveness update.
func (s *StateStore) Heartbeat(_ context.Context, pipelineID string, serverStatus string, details domain.RunState) error {
	if pipelineID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats = append(s.heartbeats, HeartbeatRecord{
		PipelineID:   pipelineID,
		ServerStatus: serverStatus,
		Details:      details.Clone(),
		At:           time.Now().UTC(),
	})
	return nil
}

// Heartbeats returns all recorded heartbeat calls, for test assertions.
func (s *StateStore) Heartbeats() []HeartbeatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HeartbeatRecord(nil), s.heartbeats...)
}

// LastHeartbeat returns the most recent heartbeat for a pipeline.
func (s *StateStore) LastHeartbeat(pipelineID string) (HeartbeatRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.heartbeats) - 1; i >= 0; i-- {
		if s.heartbeats[i].PipelineID == pipelineID {
			return s.heartbeats[i], true
		}
	}
	return HeartbeatRecord{}, false
}
