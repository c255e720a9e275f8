package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]*Checkpoint)}
}

func (m *MemoryStore) Load(_ context.Context, threadID string) (*models.WorkflowState, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checkpoint, ok := m.checkpoints[threadID]
	if !ok {
		return nil, 0, NewStoreError("Load", threadID, ErrNotFound)
	}

	return checkpoint.State.Clone(), checkpoint.Version, nil
}

func (m *MemoryStore) Save(_ context.Context, threadID string, version int64, state *models.WorkflowState) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if checkpoint, ok := m.checkpoints[threadID]; ok {
		current = checkpoint.Version
	}

	if version != current {
		return 0, NewStoreError("Save", threadID, ErrVersionConflict)
	}

	next := current + 1
	m.checkpoints[threadID] = &Checkpoint{
		ThreadID: threadID,
		Version:  next,
		State:    state.Clone(),
	}

	return next, nil
}

func (m *MemoryStore) Idle(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var idle []string

	for threadID, checkpoint := range m.checkpoints {
		state := checkpoint.State
		if state.Active() && state.AwaitingUserInput && state.UpdatedAt.Before(cutoff) {
			idle = append(idle, threadID)
		}
	}

	return idle, nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.checkpoints[threadID]; !ok {
		return NewStoreError("Delete", threadID, ErrNotFound)
	}

	delete(m.checkpoints, threadID)

	return nil
}

func (m *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}
