// Package postgresql provides a PostgreSQL-backed checkpoint store.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/statestore/sqlbase"
)

// Store implements statestore.Store on PostgreSQL. One row per session; the
// version column carries the optimistic-concurrency check: updates are guarded
// by WHERE version = $expected, so a concurrent resumption of the same session
// fails with ErrVersionConflict instead of overwriting the other writer.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens a connection, runs migrations and returns the store.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

func (s *Store) Load(ctx context.Context, threadID string) (*models.WorkflowState, int64, error) {
	query := `SELECT version, state FROM onboarding_sessions WHERE thread_id = $1`

	var (
		version int64
		body    []byte
	)

	err := s.db.QueryRowContext(ctx, query, threadID).Scan(&version, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, statestore.NewStoreError("Load", threadID, statestore.ErrNotFound)
		}

		return nil, 0, statestore.NewStoreError("Load", threadID, err)
	}

	var state models.WorkflowState

	err = json.Unmarshal(body, &state)
	if err != nil {
		return nil, 0, statestore.NewStoreError("Load", threadID, fmt.Errorf("failed to unmarshal state: %w", err))
	}

	return &state, version, nil
}

func (s *Store) Save(ctx context.Context, threadID string, version int64, state *models.WorkflowState) (int64, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, fmt.Errorf("failed to marshal state: %w", err))
	}

	next := version + 1

	if version == 0 {
		insert := `
			INSERT INTO onboarding_sessions (
				thread_id, tenant_id, version, status, awaiting_input, state, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (thread_id) DO NOTHING
		`

		result, err := s.db.ExecContext(ctx, insert,
			threadID,
			state.TenantID,
			next,
			state.Status,
			state.AwaitingUserInput,
			body,
			state.CreatedAt,
			state.UpdatedAt,
		)
		if err != nil {
			return 0, statestore.NewStoreError("Save", threadID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, statestore.NewStoreError("Save", threadID, err)
		}

		if affected == 0 {
			return 0, statestore.NewStoreError("Save", threadID, statestore.ErrVersionConflict)
		}

		return next, nil
	}

	update := `
		UPDATE onboarding_sessions
		SET version = $1, status = $2, awaiting_input = $3, state = $4, updated_at = $5
		WHERE thread_id = $6 AND version = $7
	`

	result, err := s.db.ExecContext(ctx, update,
		next,
		state.Status,
		state.AwaitingUserInput,
		body,
		state.UpdatedAt,
		threadID,
		version,
	)
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, statestore.NewStoreError("Save", threadID, err)
	}

	if affected == 0 {
		return 0, statestore.NewStoreError("Save", threadID, statestore.ErrVersionConflict)
	}

	return next, nil
}

func (s *Store) Idle(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT thread_id FROM onboarding_sessions
		WHERE status = $1 AND awaiting_input = TRUE AND updated_at < $2
		ORDER BY updated_at
	`

	rows, err := s.db.QueryContext(ctx, query, models.SessionStatusActive, cutoff)
	if err != nil {
		return nil, statestore.NewStoreError("Idle", "", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var idle []string

	for rows.Next() {
		var threadID string

		err := rows.Scan(&threadID)
		if err != nil {
			return nil, statestore.NewStoreError("Idle", "", err)
		}

		idle = append(idle, threadID)
	}

	err = rows.Err()
	if err != nil {
		return nil, statestore.NewStoreError("Idle", "", err)
	}

	return idle, nil
}

func (s *Store) Delete(ctx context.Context, threadID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE thread_id = $1`, threadID)
	if err != nil {
		return statestore.NewStoreError("Delete", threadID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return statestore.NewStoreError("Delete", threadID, err)
	}

	if affected == 0 {
		return statestore.NewStoreError("Delete", threadID, statestore.ErrNotFound)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
