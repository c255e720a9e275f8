// Package redis provides a Redis-backed checkpoint store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
)

const keyPrefix = "onboarding:session:"

// Store implements statestore.Store on Redis. Checkpoints are JSON documents
// under onboarding:session:<threadID>; the optimistic version check runs
// inside a WATCH/MULTI transaction so a concurrent writer aborts the save.
type Store struct {
	client goredis.UniversalClient
}

// NewStore creates a Redis store from a redis:// connection URL.
func NewStore(redisURL string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Store{client: goredis.NewClient(opts)}, nil
}

// NewStoreWithClient wraps an existing client, mainly for tests.
func NewStoreWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func sessionKey(threadID string) string {
	return keyPrefix + threadID
}

func (s *Store) Load(ctx context.Context, threadID string) (*models.WorkflowState, int64, error) {
	body, err := s.client.Get(ctx, sessionKey(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, 0, statestore.NewStoreError("Load", threadID, statestore.ErrNotFound)
		}

		return nil, 0, statestore.NewStoreError("Load", threadID, err)
	}

	var checkpoint statestore.Checkpoint

	err = json.Unmarshal(body, &checkpoint)
	if err != nil {
		return nil, 0, statestore.NewStoreError("Load", threadID, fmt.Errorf("failed to unmarshal checkpoint: %w", err))
	}

	return checkpoint.State, checkpoint.Version, nil
}

func (s *Store) Save(ctx context.Context, threadID string, version int64, state *models.WorkflowState) (int64, error) {
	key := sessionKey(threadID)
	next := version + 1

	transaction := func(tx *goredis.Tx) error {
		var current int64

		body, err := tx.Get(ctx, key).Bytes()

		switch {
		case errors.Is(err, goredis.Nil):
			current = 0
		case err != nil:
			return err
		default:
			var checkpoint statestore.Checkpoint

			err = json.Unmarshal(body, &checkpoint)
			if err != nil {
				return fmt.Errorf("failed to unmarshal checkpoint: %w", err)
			}

			current = checkpoint.Version
		}

		if version != current {
			return statestore.ErrVersionConflict
		}

		payload, err := json.Marshal(statestore.Checkpoint{
			ThreadID: threadID,
			Version:  next,
			State:    state,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal checkpoint: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)

			return nil
		})

		return err
	}

	err := s.client.Watch(ctx, transaction, key)
	if err != nil {
		// A WATCH abort means another writer won the race, which is exactly
		// the stale-version case.
		if errors.Is(err, goredis.TxFailedErr) {
			err = statestore.ErrVersionConflict
		}

		return 0, statestore.NewStoreError("Save", threadID, err)
	}

	return next, nil
}

func (s *Store) Idle(ctx context.Context, cutoff time.Time) ([]string, error) {
	var (
		idle   []string
		cursor uint64
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, statestore.NewStoreError("Idle", "", err)
		}

		for _, key := range keys {
			threadID := key[len(keyPrefix):]

			state, _, err := s.Load(ctx, threadID)
			if err != nil {
				if statestore.IsNotFound(err) {
					continue
				}

				return nil, statestore.NewStoreError("Idle", threadID, err)
			}

			if state.Active() && state.AwaitingUserInput && state.UpdatedAt.Before(cutoff) {
				idle = append(idle, threadID)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return idle, nil
}

func (s *Store) Delete(ctx context.Context, threadID string) error {
	removed, err := s.client.Del(ctx, sessionKey(threadID)).Result()
	if err != nil {
		return statestore.NewStoreError("Delete", threadID, err)
	}

	if removed == 0 {
		return statestore.NewStoreError("Delete", threadID, statestore.ErrNotFound)
	}

	return nil
}

// HealthCheck pings the Redis server.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
