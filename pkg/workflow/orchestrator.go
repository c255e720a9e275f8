package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relayone/onboarding/pkg/eventbus"
	"github.com/relayone/onboarding/pkg/events"
	"github.com/relayone/onboarding/pkg/intent"
	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/otelhelper"
	"github.com/relayone/onboarding/pkg/statestore"
)

var (
	// ErrSessionClosed is returned when resuming a session that already
	// reached a terminal outcome. Closed sessions stay readable forever.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSessionExists is returned when starting a session whose thread ID is
	// already taken.
	ErrSessionExists = errors.New("session already exists")
)

// maxStepsPerResume bounds the synchronous step chain a single resume call may
// execute. The router cannot loop within one call (revisited steps suspend),
// so this is a backstop, not a tuning knob.
const maxStepsPerResume = 20

// StartParams identifies the tenant context a new session is created for.
// Field validation happens on the HTTP request types before these are built.
type StartParams struct {
	ThreadID   string
	TenantID   string
	UserID     string
	LocationID string
}

// Orchestrator drives onboarding sessions: it loads the checkpoint, runs the
// current step's handler, merges the update through the reducers, persists,
// and asks the router for the next step until the session suspends for user
// input or terminates. All persistence goes through the optimistic-version
// store, so two concurrent resumptions of one session cannot both win.
type Orchestrator struct {
	store    statestore.Store
	handlers *Handlers
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewOrchestrator wires the orchestrator. The event bus and tracer are
// optional; pass nil to disable publishing or tracing.
func NewOrchestrator(
	store statestore.Store,
	handlers *Handlers,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		handlers: handlers,
		eventBus: eventBus,
		tracer:   tracer,
		logger:   logger,
	}
}

// Start creates and persists a session, runs the greeting, and drives the
// workflow to its first suspend point.
func (o *Orchestrator) Start(ctx context.Context, params StartParams) (*models.WorkflowState, error) {
	threadID := params.ThreadID
	if threadID == "" {
		threadID = "thread-" + uuid.New().String()
	}

	ctx, span := o.startSpan(ctx, "onboarding.start", threadID, params.TenantID)
	defer span.End()

	_, _, err := o.store.Load(ctx, threadID)
	if err == nil {
		return nil, fmt.Errorf("failed to start session %s: %w", threadID, ErrSessionExists)
	}

	if !statestore.IsNotFound(err) {
		return nil, err
	}

	state := models.NewWorkflowState(threadID, params.TenantID, params.UserID, params.LocationID)

	o.logger.InfoContext(ctx, "Starting onboarding session",
		"thread_id", threadID, "tenant_id", params.TenantID)

	o.publish(ctx, state, events.SessionStarted{
		BaseEvent:  o.baseEvent(events.SessionStartedEvent, state),
		UserID:     params.UserID,
		LocationID: params.LocationID,
	})

	return o.drive(ctx, state, 0, "")
}

// Resume feeds the latest user message into a paused session and drives it to
// the next suspend point or terminal. Resuming with an empty message on an
// already-paused session is an idempotent no-op.
func (o *Orchestrator) Resume(ctx context.Context, threadID, message string) (*models.WorkflowState, error) {
	ctx, span := o.startSpan(ctx, "onboarding.resume", threadID, "")
	defer span.End()

	state, version, err := o.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if !state.Active() {
		return nil, fmt.Errorf("failed to resume session %s: %w", threadID, ErrSessionClosed)
	}

	if message == "" {
		return state, nil
	}

	if intent.IsStartOver(message) {
		return o.startOver(ctx, state, version, message)
	}

	state = Reduce(state, &models.Update{
		Transcript:        []models.Turn{{Role: models.RoleUser, Content: message}},
		AwaitingUserInput: models.BoolPtr(false),
	})

	return o.drive(ctx, state, version, message)
}

// GetState returns the current checkpoint of a session.
func (o *Orchestrator) GetState(ctx context.Context, threadID string) (*models.WorkflowState, error) {
	state, _, err := o.store.Load(ctx, threadID)

	return state, err
}

// SubmitApproval records an explicit approve/reject decision by synthesizing
// the equivalent user message and delegating to Resume.
func (o *Orchestrator) SubmitApproval(ctx context.Context, threadID string, approved bool, notes string) (*models.WorkflowState, error) {
	message := "approve"

	if !approved {
		message = "no, please change the plan"
		if notes != "" {
			message = "no: " + notes
		}
	}

	return o.Resume(ctx, threadID, message)
}

// startOver resets the captured fields while preserving the transcript, the
// identifiers and the failure counter, and re-enters collect_info. Same
// thread, same audit trail.
func (o *Orchestrator) startOver(ctx context.Context, state *models.WorkflowState, version int64, message string) (*models.WorkflowState, error) {
	o.logger.InfoContext(ctx, "Restarting session at user request", "thread_id", state.ThreadID)

	reset := &models.Update{
		Transcript:         []models.Turn{{Role: models.RoleUser, Content: message}},
		WebsiteURL:         models.StringPtr(""),
		BrandProfile:       models.RawPtr(nil),
		SelectedStaffRoles: models.RolesPtr(nil),
		Goals:              models.GoalsPtr(nil),
		BuildPlan:          models.RawPtr(nil),
		ApprovalStatus:     models.ApprovalPtr(models.ApprovalNone),
		ApprovalNotes:      models.StringPtr(""),
		AwaitingUserInput:  models.BoolPtr(false),
		LastError:          models.StringPtr(""),
	}
	reset.Say("Of course — let's take it from the top.")

	state = Reduce(state, reset)
	state.DeploymentResult = nil
	state.PreviousStep = state.CurrentStep
	state.CurrentStep = models.StepCollectInfo

	return o.drive(ctx, state, version, "")
}

// drive is the orchestration cycle: handler, reducer, checkpoint, router. The
// message is consumed by the first handler only; follow-on steps run without
// user input. A step revisited within one call suspends instead of looping,
// which keeps collaborator retries paced by the user.
func (o *Orchestrator) drive(ctx context.Context, state *models.WorkflowState, version int64, message string) (*models.WorkflowState, error) {
	visited := map[models.Step]bool{}

	for range maxStepsPerResume {
		visited[state.CurrentStep] = true

		logger := o.logger.With("thread_id", state.ThreadID, "step", state.CurrentStep)
		logger.DebugContext(ctx, "Executing step handler")

		approvalBefore := state.ApprovalStatus
		deployedBefore := state.DeploymentResult != nil

		handler := o.handlers.For(state.CurrentStep)
		update := handler(ctx, state, message)
		message = ""

		state = Reduce(state, update)

		o.publishTransitions(ctx, state, approvalBefore, deployedBefore)

		next, terminal := Next(state)

		if terminal {
			return o.finish(ctx, state, version)
		}

		if next == state.CurrentStep || visited[next] {
			return o.suspend(ctx, state, version, next)
		}

		previous := state.CurrentStep
		state.PreviousStep = previous
		state.CurrentStep = next
		state.AwaitingUserInput = false

		newVersion, err := o.checkpoint(ctx, state, version)
		if err != nil {
			return nil, err
		}

		version = newVersion

		o.publish(ctx, state, events.StepCompleted{
			BaseEvent: o.baseEvent(events.StepCompletedEvent, state),
			FromStep:  previous,
			ToStep:    next,
		})
	}

	logger := o.logger.With("thread_id", state.ThreadID)
	logger.ErrorContext(ctx, "Step limit reached in a single resume, suspending")

	return o.suspend(ctx, state, version, state.CurrentStep)
}

// suspend parks the session at the given step awaiting user input.
func (o *Orchestrator) suspend(ctx context.Context, state *models.WorkflowState, version int64, next models.Step) (*models.WorkflowState, error) {
	if next != state.CurrentStep {
		state.PreviousStep = state.CurrentStep
		state.CurrentStep = next
	}

	state.AwaitingUserInput = true

	_, err := o.checkpoint(ctx, state, version)
	if err != nil {
		return nil, err
	}

	o.publish(ctx, state, events.AwaitingInput{
		BaseEvent: o.baseEvent(events.AwaitingInputEvent, state),
		Step:      state.CurrentStep,
	})

	return state, nil
}

// finish archives the session at its terminal outcome.
func (o *Orchestrator) finish(ctx context.Context, state *models.WorkflowState, version int64) (*models.WorkflowState, error) {
	now := time.Now().UTC()

	state.AwaitingUserInput = false
	state.ArchivedAt = &now

	if state.CurrentStep == models.StepErrorHandler {
		state.Status = models.SessionStatusFailed
	} else {
		state.Status = models.SessionStatusCompleted
	}

	_, err := o.checkpoint(ctx, state, version)
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "Session reached terminal state",
		"thread_id", state.ThreadID, "status", state.Status, "step", state.CurrentStep)

	if state.Status == models.SessionStatusFailed {
		o.publish(ctx, state, events.SessionFailed{
			BaseEvent:  o.baseEvent(events.SessionFailedEvent, state),
			ErrorCount: state.ErrorCount,
			LastError:  state.LastError,
		})
	} else {
		o.publish(ctx, state, events.SessionCompleted{
			BaseEvent: o.baseEvent(events.SessionCompletedEvent, state),
			FinalStep: state.CurrentStep,
		})
	}

	return state, nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, state *models.WorkflowState, version int64) (int64, error) {
	newVersion, err := o.store.Save(ctx, state.ThreadID, version, state)
	if err != nil {
		if statestore.IsVersionConflict(err) {
			o.logger.WarnContext(ctx, "Concurrent resumption detected",
				"thread_id", state.ThreadID, "version", version)
		}

		otelhelper.SetError(trace.SpanFromContext(ctx), err,
			attribute.String(otelhelper.StepKey, string(state.CurrentStep)),
			attribute.String(otelhelper.StatusKey, string(state.Status)),
			attribute.Int(otelhelper.ErrorCountKey, state.ErrorCount))

		return 0, err
	}

	return newVersion, nil
}

// publishTransitions emits the domain events that are keyed to state changes
// rather than step changes.
func (o *Orchestrator) publishTransitions(ctx context.Context, state *models.WorkflowState, approvalBefore models.ApprovalStatus, deployedBefore bool) {
	if approvalBefore != state.ApprovalStatus &&
		(state.ApprovalStatus == models.ApprovalApproved || state.ApprovalStatus == models.ApprovalRejected) {
		o.publish(ctx, state, events.ApprovalDecided{
			BaseEvent: o.baseEvent(events.ApprovalDecidedEvent, state),
			Approved:  state.ApprovalStatus == models.ApprovalApproved,
			Notes:     state.ApprovalNotes,
		})
	}

	if !deployedBefore && state.DeploymentResult != nil {
		o.publish(ctx, state, events.SessionDeployed{
			BaseEvent: o.baseEvent(events.SessionDeployedEvent, state),
			Success:   state.DeploymentResult.Success,
			Errors:    state.DeploymentResult.Errors,
		})
	}
}

func (o *Orchestrator) baseEvent(eventType events.EventType, state *models.WorkflowState) events.BaseEvent {
	id := uuid.New().String()
	if o.eventBus != nil {
		id = o.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ThreadID:  state.ThreadID,
		TenantID:  state.TenantID,
	}
}

// publish is best-effort: a bus outage must never affect workflow state.
func (o *Orchestrator) publish(ctx context.Context, state *models.WorkflowState, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	err := o.eventBus.Publish(ctx, state.ThreadID, event)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to publish session event",
			"thread_id", state.ThreadID, "event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name, threadID, tenantID string) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	attrs := []attribute.KeyValue{attribute.String(otelhelper.ThreadIDKey, threadID)}
	if tenantID != "" {
		attrs = append(attrs, attribute.String(otelhelper.TenantIDKey, tenantID))
	}

	return otelhelper.StartSpan(ctx, o.tracer, name, attrs...)
}
