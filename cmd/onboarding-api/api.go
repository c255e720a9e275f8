// Package main provides the onboarding API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/web"
	"github.com/relayone/onboarding/pkg/workflow"
)

type API struct {
	logger       *slog.Logger
	orchestrator *workflow.Orchestrator
	store        statestore.Store
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	orchestrator *workflow.Orchestrator,
	store statestore.Store,
) *API {
	return &API{
		logger:       logger,
		orchestrator: orchestrator,
		store:        store,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.store, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Onboarding API")
	})

	s := app.Group("/sessions")
	s.Post("/", handlers.StartSession)
	s.Get("/:threadId", handlers.GetSession)
	s.Post("/:threadId/messages", handlers.ResumeSession)
	s.Post("/:threadId/approval", handlers.SubmitApproval)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
