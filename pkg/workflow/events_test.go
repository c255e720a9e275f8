package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayone/onboarding/pkg/eventbus"
	"github.com/relayone/onboarding/pkg/events"
	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
)

type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	return nil
}

func (b *recordingBus) Subscribe(_ context.Context) error { return nil }

func (b *recordingBus) Handle(_ events.EventType, _ eventbus.EventHandler) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) GenerateID() string { return uuid.New().String() }

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]events.EventType, 0, len(b.events))
	for _, event := range b.events {
		out = append(out, event.GetType())
	}

	return out
}

func TestOrchestrator_PublishesLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	bus := &recordingBus{}
	f.orchestrator = NewOrchestrator(f.store, NewHandlers(
		f.scanner, f.generator, f.deployer, f.credentials,
		f.orchestrator.logger,
	), bus, nil, f.orchestrator.logger)

	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	resume(t, f, threadID, "book more appointments")
	state = resume(t, f, threadID, "approve")
	require.Equal(t, models.SessionStatusCompleted, state.Status)

	types := bus.types()

	assert.Equal(t, events.SessionStartedEvent, types[0])
	assert.Contains(t, types, events.StepCompletedEvent)
	assert.Contains(t, types, events.AwaitingInputEvent)
	assert.Contains(t, types, events.ApprovalDecidedEvent)
	assert.Contains(t, types, events.SessionDeployedEvent)
	assert.Equal(t, events.SessionCompletedEvent, types[len(types)-1])
	assert.NotContains(t, types, events.SessionFailedEvent)
}

func TestOrchestrator_BusFailureNeverBreaksWorkflow(t *testing.T) {
	f := newFixture(t)
	f.orchestrator = NewOrchestrator(f.store, NewHandlers(
		f.scanner, f.generator, f.deployer, f.credentials,
		f.orchestrator.logger,
	), failingBus{}, nil, f.orchestrator.logger)

	state := start(t, f)
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)

	state = resume(t, f, state.ThreadID, "example.com")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
}

type failingBus struct{}

func (failingBus) Publish(_ context.Context, _ string, _ eventbus.Event) error {
	return context.DeadlineExceeded
}

func (failingBus) Subscribe(_ context.Context) error { return nil }

func (failingBus) Handle(_ events.EventType, _ eventbus.EventHandler) error { return nil }

func (failingBus) Close() error { return nil }

func (failingBus) GenerateID() string { return uuid.New().String() }

func TestSweeper_PublishesAbandonedEvent(t *testing.T) {
	store := statestore.NewMemoryStore()
	bus := &recordingBus{}

	f := newFixture(t)
	seedSession(t, store, "thread-stale", time.Now().UTC().Add(-100*time.Hour), true)

	sweeper := NewSweeper(store, bus, f.orchestrator.logger, 72*time.Hour)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	types := bus.types()
	require.Len(t, types, 1)
	assert.Equal(t, events.SessionAbandonedEvent, types[0])
}
