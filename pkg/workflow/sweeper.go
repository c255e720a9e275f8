package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relayone/onboarding/pkg/eventbus"
	"github.com/relayone/onboarding/pkg/events"
	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
)

// Sweeper closes out sessions that have been awaiting user input past the
// idle TTL. Abandonment is an external policy applied by the janitor, never
// by the orchestrator itself.
type Sweeper struct {
	store    statestore.Store
	eventBus eventbus.EventBus
	logger   *slog.Logger
	idleTTL  time.Duration
}

func NewSweeper(store statestore.Store, eventBus eventbus.EventBus, logger *slog.Logger, idleTTL time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		idleTTL:  idleTTL,
	}
}

// Sweep marks every session idle past the TTL as abandoned. Each session is
// swept through the versioned store, so a sweep racing a late resumption
// loses cleanly and leaves the session alone. Returns the number of sessions
// abandoned.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.idleTTL)

	threadIDs, err := s.store.Idle(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0

	for _, threadID := range threadIDs {
		if err := s.abandon(ctx, threadID); err != nil {
			s.logger.WarnContext(ctx, "Failed to abandon idle session",
				"thread_id", threadID, "error", err)

			continue
		}

		swept++
	}

	if swept > 0 {
		s.logger.InfoContext(ctx, "Idle session sweep finished",
			"abandoned", swept, "cutoff", cutoff)
	}

	return swept, nil
}

func (s *Sweeper) abandon(ctx context.Context, threadID string) error {
	state, version, err := s.store.Load(ctx, threadID)
	if err != nil {
		return err
	}

	// Raced with a resumption or another sweep.
	if !state.Active() || state.UpdatedAt.After(time.Now().UTC().Add(-s.idleTTL)) {
		return nil
	}

	idleSince := state.UpdatedAt
	now := time.Now().UTC()

	state.Status = models.SessionStatusAbandoned
	state.AwaitingUserInput = false
	state.ArchivedAt = &now
	state.UpdatedAt = now

	_, err = s.store.Save(ctx, threadID, version, state)
	if err != nil {
		if statestore.IsVersionConflict(err) {
			return nil
		}

		return err
	}

	s.logger.InfoContext(ctx, "Abandoned idle session",
		"thread_id", threadID, "idle_since", idleSince)

	if s.eventBus != nil {
		event := events.SessionAbandoned{
			BaseEvent: events.BaseEvent{
				ID:        uuid.New().String(),
				Type:      events.SessionAbandonedEvent,
				Timestamp: now,
				ThreadID:  state.ThreadID,
				TenantID:  state.TenantID,
			},
			IdleSince: idleSince,
		}

		if err := s.eventBus.Publish(ctx, threadID, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish abandonment event",
				"thread_id", threadID, "error", err)
		}
	}

	return nil
}
