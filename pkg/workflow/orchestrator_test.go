package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/relayone/onboarding/pkg/collaborators"
	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
)

type fakeScanner struct {
	failures int
	calls    int
}

func (f *fakeScanner) Analyze(_ context.Context, url string) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, collaborators.NewCollaboratorError("brand_scanner", errors.New("scrape timeout"))
	}

	return json.RawMessage(`{"url":"` + url + `","tone":"friendly"}`), nil
}

type fakeGenerator struct {
	failures int
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _ json.RawMessage, roles, goals []string, _ string) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, collaborators.NewCollaboratorError("plan_generator", errors.New("composer unavailable"))
	}

	plan := map[string]any{
		"summary": "Your setup plan",
		"items": []map[string]string{
			{"kind": "staff", "name": "receptionist"},
		},
	}

	raw, _ := json.Marshal(plan)

	return raw, nil
}

type fakeDeployer struct {
	result *models.DeploymentResult
}

func (f *fakeDeployer) Deploy(_ context.Context, _ json.RawMessage, _, _ string) (*models.DeploymentResult, error) {
	if f.result != nil {
		return f.result, nil
	}

	return &models.DeploymentResult{Success: true}, nil
}

type fakeCredentials struct {
	credential string
}

func (f *fakeCredentials) Get(_ context.Context, _ string) (string, error) {
	return f.credential, nil
}

type fixture struct {
	orchestrator *Orchestrator
	store        statestore.Store
	scanner      *fakeScanner
	generator    *fakeGenerator
	deployer     *fakeDeployer
	credentials  *fakeCredentials
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := statestore.NewMemoryStore()
	scanner := &fakeScanner{}
	generator := &fakeGenerator{}
	deployer := &fakeDeployer{}
	credentials := &fakeCredentials{credential: "token-1"}

	handlers := NewHandlers(scanner, generator, deployer, credentials, logger)

	return &fixture{
		orchestrator: NewOrchestrator(store, handlers, nil, nil, logger),
		store:        store,
		scanner:      scanner,
		generator:    generator,
		deployer:     deployer,
		credentials:  credentials,
	}
}

func start(t *testing.T, f *fixture) *models.WorkflowState {
	t.Helper()

	state, err := f.orchestrator.Start(context.Background(), StartParams{
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	require.NoError(t, err)

	return state
}

func resume(t *testing.T, f *fixture, threadID, message string) *models.WorkflowState {
	t.Helper()

	state, err := f.orchestrator.Resume(context.Background(), threadID, message)
	require.NoError(t, err)

	return state
}

func TestOrchestrator_StartSuspendsAtCollectInfo(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)

	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)
	assert.True(t, state.AwaitingUserInput)
	assert.True(t, state.Active())
	// Greeting plus the collect-info prompt.
	require.NotEmpty(t, state.Transcript)
	assert.Equal(t, models.RoleAssistant, state.Transcript[0].Role)
}

func TestOrchestrator_StartRejectsDuplicateThreadID(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Start(context.Background(), StartParams{
		ThreadID: "thread-duplicate",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	require.NoError(t, err)

	_, err = f.orchestrator.Start(context.Background(), StartParams{
		ThreadID: "thread-duplicate",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestOrchestrator_EmptyResumeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)

	_, versionBefore, err := f.store.Load(context.Background(), state.ThreadID)
	require.NoError(t, err)

	resumed := resume(t, f, state.ThreadID, "")

	_, versionAfter, err := f.store.Load(context.Background(), state.ThreadID)
	require.NoError(t, err)

	assert.Equal(t, versionBefore, versionAfter)
	assert.Equal(t, state.CurrentStep, resumed.CurrentStep)
	assert.Equal(t, len(state.Transcript), len(resumed.Transcript))
}

func TestOrchestrator_HappyPath(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	state = resume(t, f, threadID, "check out example.com please")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
	assert.Equal(t, "https://example.com", state.WebsiteURL)
	assert.NotEmpty(t, state.BrandProfile)

	state = resume(t, f, threadID, "recommended")
	assert.Equal(t, models.StepSetGoals, state.CurrentStep)
	assert.Equal(t, models.RecommendedRoles(), state.SelectedStaffRoles)

	state = resume(t, f, threadID, "book more appointments, increase reviews")
	assert.Equal(t, models.StepAwaitApproval, state.CurrentStep)
	assert.Equal(t, []string{"Book more appointments", "Collect more reviews"}, state.Goals)
	assert.NotEmpty(t, state.BuildPlan)
	assert.Equal(t, models.ApprovalPending, state.ApprovalStatus)

	state = resume(t, f, threadID, "approve")
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
	assert.Equal(t, models.ApprovalApproved, state.ApprovalStatus)
	require.NotNil(t, state.DeploymentResult)
	assert.True(t, state.DeploymentResult.Success)
	assert.NotNil(t, state.ArchivedAt)
	assert.Zero(t, state.ErrorCount)
}

func TestOrchestrator_ManualProfileSkipsScan(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	state = resume(t, f, threadID, "we have no website yet")
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)

	state = resume(t, f, threadID, "Acme Dental, a family dentistry practice in Austin")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
	assert.Empty(t, state.WebsiteURL)
	assert.NotEmpty(t, state.BrandProfile)
	assert.Zero(t, f.scanner.calls)
}

func TestOrchestrator_RejectionRoutesToSelectStaff(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	state = resume(t, f, threadID, "book more appointments")
	require.Equal(t, models.StepAwaitApproval, state.CurrentStep)

	state = resume(t, f, threadID, "no, change the staff selection")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
	assert.Equal(t, models.ApprovalRejected, state.ApprovalStatus)
	assert.Empty(t, state.SelectedStaffRoles)
	assert.Empty(t, state.BuildPlan)
	assert.True(t, state.Active())

	// A fresh selection regenerates the plan and re-arms the gate.
	state = resume(t, f, threadID, "just the receptionist")
	assert.Equal(t, models.StepAwaitApproval, state.CurrentStep)
	assert.Equal(t, []string{"receptionist"}, state.SelectedStaffRoles)
	assert.Equal(t, models.ApprovalPending, state.ApprovalStatus)
	assert.NotEmpty(t, state.BuildPlan)
}

func TestOrchestrator_ApprovalGateHoldsWithoutDecision(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	state = resume(t, f, threadID, "book more appointments")
	require.Equal(t, models.StepAwaitApproval, state.CurrentStep)

	state = resume(t, f, threadID, "hmm tell me more about the plan")
	assert.Equal(t, models.StepAwaitApproval, state.CurrentStep)
	assert.Equal(t, models.ApprovalPending, state.ApprovalStatus)
	assert.Nil(t, state.DeploymentResult)
}

func TestOrchestrator_SubmitApproval(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	state = resume(t, f, threadID, "book more appointments")
	require.Equal(t, models.StepAwaitApproval, state.CurrentStep)

	state, err := f.orchestrator.SubmitApproval(context.Background(), threadID, false, "the goals are wrong")
	require.NoError(t, err)
	assert.Equal(t, models.StepSetGoals, state.CurrentStep)
	assert.Equal(t, models.ApprovalRejected, state.ApprovalStatus)
	assert.Empty(t, state.Goals)

	state = resume(t, f, threadID, "collect more reviews")
	require.Equal(t, models.StepAwaitApproval, state.CurrentStep)

	state, err = f.orchestrator.SubmitApproval(context.Background(), threadID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
}

func TestOrchestrator_TransientFailureRetriesArePacedByUser(t *testing.T) {
	f := newFixture(t)
	f.scanner.failures = 1

	state := start(t, f)
	threadID := state.ThreadID

	state = resume(t, f, threadID, "example.com")
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)
	assert.Equal(t, 1, state.ErrorCount)
	assert.True(t, state.AwaitingUserInput)
	assert.True(t, state.Active())

	state = resume(t, f, threadID, "it's definitely example.com")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
	assert.Equal(t, 1, state.ErrorCount)
	assert.Empty(t, state.LastError)
}

func TestOrchestrator_NoWebsiteAfterFailedScanSwitchesToManualMode(t *testing.T) {
	f := newFixture(t)
	f.scanner.failures = 100

	state := start(t, f)
	threadID := state.ThreadID

	state = resume(t, f, threadID, "example.com")
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)
	assert.Equal(t, 1, state.ErrorCount)
	assert.Equal(t, 1, f.scanner.calls)

	// Giving up on the website must not re-scan the stale URL or count as
	// another failure.
	state = resume(t, f, threadID, "actually we have no website")
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)
	assert.Equal(t, 1, state.ErrorCount)
	assert.Equal(t, 1, f.scanner.calls)
	assert.Empty(t, state.WebsiteURL)
	assert.True(t, state.AwaitingUserInput)

	state = resume(t, f, threadID, "We're Acme Dental, a family dentistry practice in Austin.")
	assert.Equal(t, models.StepSelectStaff, state.CurrentStep)
	assert.Equal(t, 1, f.scanner.calls)
	assert.NotEmpty(t, state.BrandProfile)
}

func TestOrchestrator_HardCeilingTerminatesSession(t *testing.T) {
	f := newFixture(t)
	f.scanner.failures = 100

	state := start(t, f)
	threadID := state.ThreadID

	state = resume(t, f, threadID, "example.com")

	for state.Active() {
		state = resume(t, f, threadID, "please try again")
	}

	assert.Equal(t, models.SessionStatusFailed, state.Status)
	assert.Equal(t, models.StepErrorHandler, state.CurrentStep)
	assert.Equal(t, HardFailureThreshold, state.ErrorCount)
	assert.NotNil(t, state.ArchivedAt)

	// Terminal sessions stay readable but reject further resumption.
	_, err := f.orchestrator.Resume(context.Background(), threadID, "hello?")
	assert.ErrorIs(t, err, ErrSessionClosed)

	read, err := f.orchestrator.GetState(context.Background(), threadID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, read.Status)
}

func TestOrchestrator_MissingCredentialParksDeployWithoutRetryCounting(t *testing.T) {
	f := newFixture(t)
	f.credentials.credential = ""

	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	resume(t, f, threadID, "book more appointments")
	state = resume(t, f, threadID, "approve")

	assert.Equal(t, models.StepDeploy, state.CurrentStep)
	assert.True(t, state.AwaitingUserInput)
	assert.True(t, state.Active())
	assert.Zero(t, state.ErrorCount)

	// Tenant connects an account out of band, then nudges the session.
	f.credentials.credential = "token-2"

	state = resume(t, f, threadID, "deploy")
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
}

func TestOrchestrator_PartialDeploymentOffersChoices(t *testing.T) {
	f := newFixture(t)
	f.deployer.result = &models.DeploymentResult{
		Success: false,
		Errors:  []string{"campaign provisioning failed"},
	}

	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	resume(t, f, threadID, "recommended")
	resume(t, f, threadID, "book more appointments")
	state = resume(t, f, threadID, "approve")

	assert.Equal(t, models.StepVerify, state.CurrentStep)
	assert.True(t, state.Active())

	f.deployer.result = &models.DeploymentResult{Success: true}

	// The retry redeploys, then pauses at verify for the user to see the
	// result before closing out.
	state = resume(t, f, threadID, "retry")
	assert.Equal(t, models.StepVerify, state.CurrentStep)
	require.NotNil(t, state.DeploymentResult)
	assert.True(t, state.DeploymentResult.Success)

	state = resume(t, f, threadID, "great")
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
}

func TestOrchestrator_StartOverPreservesTranscriptAndCounter(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	resume(t, f, threadID, "example.com")
	state = resume(t, f, threadID, "recommended")
	require.NotEmpty(t, state.SelectedStaffRoles)

	turnsBefore := len(state.Transcript)

	state = resume(t, f, threadID, "actually, let's start over")
	assert.Equal(t, models.StepCollectInfo, state.CurrentStep)
	assert.Empty(t, state.WebsiteURL)
	assert.Empty(t, state.BrandProfile)
	assert.Empty(t, state.SelectedStaffRoles)
	assert.Empty(t, state.BuildPlan)
	assert.Equal(t, models.ApprovalNone, state.ApprovalStatus)
	assert.Greater(t, len(state.Transcript), turnsBefore)
}

func TestOrchestrator_ConcurrentResumptionLoses(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	// Simulate a racing writer bumping the version between the orchestrator's
	// load and save.
	loaded, version, err := f.store.Load(context.Background(), threadID)
	require.NoError(t, err)

	conflicting := &conflictingStore{Store: f.store, threadID: threadID, state: loaded, version: version}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	handlers := NewHandlers(f.scanner, f.generator, f.deployer, f.credentials, logger)
	racing := NewOrchestrator(conflicting, handlers, nil, nil, logger)

	_, err = racing.Resume(context.Background(), threadID, "example.com")
	assert.True(t, statestore.IsVersionConflict(err))
}

func TestOrchestrator_CheckpointFailureIsRecordedOnSpan(t *testing.T) {
	f := newFixture(t)
	state := start(t, f)
	threadID := state.ThreadID

	loaded, version, err := f.store.Load(context.Background(), threadID)
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	conflicting := &conflictingStore{Store: f.store, threadID: threadID, state: loaded, version: version}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	handlers := NewHandlers(f.scanner, f.generator, f.deployer, f.credentials, logger)
	racing := NewOrchestrator(conflicting, handlers, nil, tracer, logger)

	_, err = racing.Resume(context.Background(), threadID, "example.com")
	require.True(t, statestore.IsVersionConflict(err))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "onboarding.resume", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

// conflictingStore lets one stale Load through, so the following Save hits a
// version conflict.
type conflictingStore struct {
	statestore.Store

	threadID string
	state    *models.WorkflowState
	version  int64
	loaded   bool
}

func (c *conflictingStore) Load(ctx context.Context, threadID string) (*models.WorkflowState, int64, error) {
	if threadID == c.threadID && !c.loaded {
		c.loaded = true

		// The racing writer commits right after this stale read.
		_, err := c.Store.Save(ctx, threadID, c.version, c.state)
		if err != nil {
			return nil, 0, err
		}

		return c.state.Clone(), c.version, nil
	}

	return c.Store.Load(ctx, threadID)
}
