// Package statestore provides durable, versioned checkpoint storage for
// onboarding sessions, with optimistic concurrency control.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

// Standard store error types that all implementations must use.
var (
	// ErrNotFound indicates no checkpoint exists for the given thread ID.
	ErrNotFound = errors.New("session not found")

	// ErrVersionConflict indicates a save was attempted with a stale version.
	// A concurrent resumption of the same session must fail with this error
	// rather than clobber the other writer's checkpoint.
	ErrVersionConflict = errors.New("checkpoint version conflict")
)

// Checkpoint is the persisted unit: one versioned state snapshot per session.
type Checkpoint struct {
	ThreadID string                `json:"thread_id"`
	Version  int64                 `json:"version"`
	State    *models.WorkflowState `json:"state"`
}

// Store persists session checkpoints keyed by thread ID.
//
// Save must reject a write whose version does not match the store's current
// version for that thread (version 0 creates). Load returns the state together
// with the version the caller must present on its next Save.
type Store interface {
	Load(ctx context.Context, threadID string) (*models.WorkflowState, int64, error)
	Save(ctx context.Context, threadID string, version int64, state *models.WorkflowState) (int64, error)

	// Idle returns the thread IDs of active sessions awaiting user input whose
	// last checkpoint predates cutoff. Used by the idle-session sweep.
	Idle(ctx context.Context, cutoff time.Time) ([]string, error)

	Delete(ctx context.Context, threadID string) error
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// StoreError wraps store failures with operation and session context.
type StoreError struct {
	Op       string
	ThreadID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.ThreadID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for session %s: %v", e.Op, e.ThreadID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a store error with context.
func NewStoreError(op, threadID string, err error) *StoreError {
	return &StoreError{Op: op, ThreadID: threadID, Err: err}
}

// IsNotFound checks if an error indicates a missing session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsVersionConflict checks if an error indicates a stale-version save.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
