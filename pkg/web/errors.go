package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleWorkflowError provides typed error handling for orchestrator errors.
func handleWorkflowError(c fiber.Ctx, err error) error {
	switch {
	case statestore.IsNotFound(err):
		return notFound(c, "session not found")

	case statestore.IsVersionConflict(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("concurrent_resumption").
			WithDetail("another resumption of this session is in progress")

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, workflow.ErrSessionClosed):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("session_closed").
			WithDetail("session already reached a terminal state")

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, workflow.ErrSessionExists):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("session_exists").
			WithDetail("a session with this thread ID already exists")

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
