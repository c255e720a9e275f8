package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/workflow"
)

type APIHandlers struct {
	orchestrator *workflow.Orchestrator
	store        statestore.Store
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *workflow.Orchestrator,
	store statestore.Store,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		store:        store,
		validator:    validator,
	}
}

func (h *APIHandlers) StartSession(c fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.orchestrator.Start(c.Context(), workflow.StartParams{
		ThreadID:   req.ThreadID,
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		LocationID: req.LocationID,
	})
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformSessionResponse(state))
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	threadID := c.Params("threadId")
	if threadID == "" {
		return badRequest(c, "Thread ID is required")
	}

	state, err := h.orchestrator.GetState(c.Context(), threadID)
	if err != nil {
		if statestore.IsNotFound(err) {
			return notFound(c, "session not found")
		}

		return handleWorkflowError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

func (h *APIHandlers) ResumeSession(c fiber.Ctx) error {
	threadID := c.Params("threadId")
	if threadID == "" {
		return badRequest(c, "Thread ID is required")
	}

	var req ResumeSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.orchestrator.Resume(c.Context(), threadID, req.Message)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

func (h *APIHandlers) SubmitApproval(c fiber.Ctx) error {
	threadID := c.Params("threadId")
	if threadID == "" {
		return badRequest(c, "Thread ID is required")
	}

	var req SubmitApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	state, err := h.orchestrator.SubmitApproval(c.Context(), threadID, req.Approved, req.Notes)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeCheck := "ok"
	httpStatus := http.StatusOK
	status := "healthy"
	message := "Onboarding API is healthy"

	if err := h.store.HealthCheck(c.Context()); err != nil {
		storeCheck = err.Error()
		httpStatus = http.StatusInternalServerError
		status = "unhealthy"
		message = "Onboarding API is unhealthy"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"statestore": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
