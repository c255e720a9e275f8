// Package file provides a file-backed checkpoint store. Each session is one
// JSON document under <root>/sessions, suitable for local development and for
// single-node deployments without a database.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
)

// Store implements statestore.Store on the local file system. The mutex
// serializes the read-check-write cycle so the optimistic version check holds
// within a single process; cross-process safety needs a database-backed store.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a file store rooted at the given directory. A "file://"
// prefix on the root is accepted and stripped.
func NewStore(root string) *Store {
	return &Store{root: strings.Replace(root, "file://", "", 1)}
}

func (s *Store) sessionPath(threadID string) string {
	return filepath.Clean(path.Join(s.root, "sessions", threadID+".json"))
}

func (s *Store) read(threadID string) (*statestore.Checkpoint, error) {
	body, err := os.ReadFile(s.sessionPath(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, statestore.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read checkpoint %s: %w", threadID, err)
	}

	var checkpoint statestore.Checkpoint

	err = json.Unmarshal(body, &checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", threadID, err)
	}

	return &checkpoint, nil
}

func (s *Store) Load(_ context.Context, threadID string) (*models.WorkflowState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	checkpoint, err := s.read(threadID)
	if err != nil {
		return nil, 0, statestore.NewStoreError("Load", threadID, err)
	}

	return checkpoint.State, checkpoint.Version, nil
}

func (s *Store) Save(_ context.Context, threadID string, version int64, state *models.WorkflowState) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64

	checkpoint, err := s.read(threadID)
	if err != nil && !statestore.IsNotFound(err) {
		return 0, statestore.NewStoreError("Save", threadID, err)
	}

	if checkpoint != nil {
		current = checkpoint.Version
	}

	if version != current {
		return 0, statestore.NewStoreError("Save", threadID, statestore.ErrVersionConflict)
	}

	err = os.MkdirAll(path.Join(s.root, "sessions"), 0750)
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, fmt.Errorf("failed to create sessions directory: %w", err))
	}

	next := current + 1

	data, err := json.MarshalIndent(statestore.Checkpoint{
		ThreadID: threadID,
		Version:  next,
		State:    state,
	}, "", "  ")
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, fmt.Errorf("failed to marshal checkpoint: %w", err))
	}

	err = os.WriteFile(s.sessionPath(threadID), data, 0600)
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, err)
	}

	return next, nil
}

func (s *Store) Idle(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := os.DirFS(path.Join(s.root, "sessions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, statestore.NewStoreError("Idle", "", err)
	}

	var idle []string

	for _, file := range jsonFiles {
		threadID := file[:len(file)-len(".json")]

		checkpoint, err := s.read(threadID)
		if err != nil {
			return nil, statestore.NewStoreError("Idle", threadID, err)
		}

		state := checkpoint.State
		if state.Active() && state.AwaitingUserInput && state.UpdatedAt.Before(cutoff) {
			idle = append(idle, threadID)
		}
	}

	return idle, nil
}

func (s *Store) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return statestore.NewStoreError("Delete", threadID, statestore.ErrNotFound)
		}

		return statestore.NewStoreError("Delete", threadID, err)
	}

	return nil
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
