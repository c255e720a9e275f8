package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/relayone/onboarding/pkg/cmd"
	"github.com/relayone/onboarding/pkg/collaborators/httpapi"
	"github.com/relayone/onboarding/pkg/log"
	"github.com/relayone/onboarding/pkg/otelhelper"
	"github.com/relayone/onboarding/pkg/workflow"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "onboarding-api",
		Usage:                 "Run the onboarding session API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "State store URL (postgres://, redis:// or file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "brand-scanner-url",
				Usage:   "Base URL of the brand analysis service",
				Sources: cli.EnvVars("BRAND_SCANNER_URL"),
			},
			&cli.StringFlag{
				Name:    "plan-generator-url",
				Usage:   "Base URL of the plan generation service",
				Sources: cli.EnvVars("PLAN_GENERATOR_URL"),
			},
			&cli.StringFlag{
				Name:    "deployer-url",
				Usage:   "Base URL of the deployment service",
				Sources: cli.EnvVars("DEPLOYER_URL"),
			},
			&cli.StringFlag{
				Name:    "credentials-url",
				Usage:   "Base URL of the tenant credential service",
				Sources: cli.EnvVars("CREDENTIALS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing onboarding API")

			store, err := cmd.NewStateStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close state store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "onboarding-api", logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			var tracer trace.Tracer

			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "onboarding-api")
				if err != nil {
					return err
				}
			}

			set := cmd.NewCollaborators(logger, httpapi.Config{
				BrandScannerURL:  command.String("brand-scanner-url"),
				PlanGeneratorURL: command.String("plan-generator-url"),
				DeployerURL:      command.String("deployer-url"),
				CredentialsURL:   command.String("credentials-url"),
			}, nil)

			handlers := workflow.NewHandlers(
				set.BrandScanner,
				set.PlanGenerator,
				set.Deployer,
				set.Credentials,
				logger,
			)

			orchestrator := workflow.NewOrchestrator(store, handlers, eventBus, tracer, logger)

			api := NewAPI(logger, orchestrator, store)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
