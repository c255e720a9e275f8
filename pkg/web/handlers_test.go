package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayone/onboarding/pkg/models"
	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/workflow"
)

type stubScanner struct{}

func (stubScanner) Analyze(_ context.Context, url string) (json.RawMessage, error) {
	return json.RawMessage(`{"url":"` + url + `"}`), nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ json.RawMessage, _, _ []string, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"summary":"Your setup plan","items":[{"kind":"staff","name":"receptionist"}]}`), nil
}

type stubDeployer struct{}

func (stubDeployer) Deploy(_ context.Context, _ json.RawMessage, _, _ string) (*models.DeploymentResult, error) {
	return &models.DeploymentResult{Success: true}, nil
}

type stubCredentials struct{}

func (stubCredentials) Get(_ context.Context, _ string) (string, error) {
	return "token-1", nil
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := statestore.NewMemoryStore()
	handlers := workflow.NewHandlers(stubScanner{}, stubGenerator{}, stubDeployer{}, stubCredentials{}, logger)
	orchestrator := workflow.NewOrchestrator(store, handlers, nil, nil, logger)

	apiHandlers := NewAPIHandlers(orchestrator, store, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	s := app.Group("/sessions")
	s.Post("/", apiHandlers.StartSession)
	s.Get("/:threadId", apiHandlers.GetSession)
	s.Post("/:threadId/messages", apiHandlers.ResumeSession)
	s.Post("/:threadId/approval", apiHandlers.SubmitApproval)
	app.Get("/health", apiHandlers.HealthCheck)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeSession(t *testing.T, resp *http.Response) SessionResponse {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var session SessionResponse

	err := json.NewDecoder(resp.Body).Decode(&session)
	require.NoError(t, err)

	return session
}

func TestStartSession(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{
		TenantID: "tenant-1",
		UserID:   "user-1",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	session := decodeSession(t, resp)
	assert.NotEmpty(t, session.ThreadID)
	assert.Equal(t, models.StepCollectInfo, session.CurrentStep)
	assert.True(t, session.AwaitingUserInput)
	assert.NotEmpty(t, session.Transcript)
}

func TestStartSession_ValidationError(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{UserID: "user-1"})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartSession_DuplicateThreadID(t *testing.T) {
	app := setupTestApp(t)

	req := StartSessionRequest{
		ThreadID: "thread-duplicate",
		TenantID: "tenant-1",
		UserID:   "user-1",
	}

	resp := postJSON(t, app, "/sessions", req)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/sessions", req)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{
		ThreadID: "thread-get-me",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/sessions/thread-get-me", nil)
	getResp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	session := decodeSession(t, getResp)
	assert.Equal(t, "thread-get-me", session.ThreadID)
	assert.Equal(t, "tenant-1", session.TenantID)
}

func TestGetSession_NotFound(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/thread-missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResumeSession_FullConversation(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{
		ThreadID: "thread-conv",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	send := func(message string) SessionResponse {
		resp := postJSON(t, app, "/sessions/thread-conv/messages", ResumeSessionRequest{Message: message})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		return decodeSession(t, resp)
	}

	session := send("check out example.com please")
	assert.Equal(t, models.StepSelectStaff, session.CurrentStep)
	assert.Equal(t, "https://example.com", session.WebsiteURL)

	session = send("recommended")
	assert.Equal(t, models.StepSetGoals, session.CurrentStep)

	session = send("book more appointments")
	assert.Equal(t, models.StepAwaitApproval, session.CurrentStep)
	assert.Equal(t, models.ApprovalPending, session.ApprovalStatus)

	resp = postJSON(t, app, "/sessions/thread-conv/approval", SubmitApprovalRequest{Approved: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	session = decodeSession(t, resp)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.DeploymentResult)
	assert.True(t, session.DeploymentResult.Success)
}

func TestResumeSession_EmptyMessageRejected(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{
		ThreadID: "thread-empty",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/sessions/thread-empty/messages", ResumeSessionRequest{})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResumeSession_ClosedSessionConflicts(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/sessions", StartSessionRequest{
		ThreadID: "thread-closed",
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, message := range []string{"example.com", "recommended", "book more appointments", "approve"} {
		resp := postJSON(t, app, "/sessions/thread-closed/messages", ResumeSessionRequest{Message: message})
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = postJSON(t, app, "/sessions/thread-closed/messages", ResumeSessionRequest{Message: "hello?"})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
