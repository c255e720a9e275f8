// Package main provides the onboarding janitor, which sweeps idle sessions
// into the abandoned state on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/relayone/onboarding/pkg/cmd"
	"github.com/relayone/onboarding/pkg/log"
	"github.com/relayone/onboarding/pkg/workflow"
)

func main() {
	logger := log.WithModule("janitor")

	command := &cli.Command{
		Name:                  "onboarding-janitor",
		Usage:                 "Abandon onboarding sessions idle past the TTL",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Name:    "sweep-schedule",
				Usage:   "Cron expression for the sweep",
				Value:   "*/15 * * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "idle-ttl",
				Usage:   "How long an awaiting-input session may stay untouched",
				Value:   72 * time.Hour,
				Sources: cli.EnvVars("IDLE_TTL"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sweep and exit",
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

			logger.InfoContext(ctx, "Initializing onboarding janitor",
				"idle_ttl", command.Duration("idle-ttl"))

			store, err := cmd.NewStateStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close state store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "onboarding-janitor", logger)
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

			sweeper := workflow.NewSweeper(store, eventBus, logger, command.Duration("idle-ttl"))

			if command.Bool("once") {
				_, err := sweeper.Sweep(ctx)

				return err
			}

			schedule := command.String("sweep-schedule")
			if _, err := cron.ParseStandard(schedule); err != nil {
				return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
			}

			c := cron.New(cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
			))

			_, err = c.AddFunc(schedule, func() {
				if _, err := sweeper.Sweep(ctx); err != nil {
					logger.ErrorContext(ctx, "Sweep failed", "error", err)
				}
			})
			if err != nil {
				return err
			}

			c.Start()
			logger.InfoContext(ctx, "Janitor running", "schedule", schedule)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			stopCtx := c.Stop()
			<-stopCtx.Done()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
