package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/betoarts/masszap/pkg/cmd"
	"github.com/betoarts/masszap/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "masszap-scheduler",
		Usage:                 "Periodically process due jobs and dispatch scheduled campaigns",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "jobs-cron",
				Usage:   "Cron expression for the job poller",
				Value:   "* * * * *",
				Sources: cli.EnvVars("JOBS_CRON"),
			},
			&cli.StringFlag{
				Name:    "campaigns-cron",
				Usage:   "Cron expression for the campaign dispatcher",
				Value:   "* * * * *",
				Sources: cli.EnvVars("CAMPAIGNS_CRON"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers for the event bus (empty keeps events in-process)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the quota counter cache (empty disables the cache)",
				Sources: cli.EnvVars("REDIS_URL"),
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

			logger.InfoContext(ctx, "Initializing MassZap scheduler")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := cmd.NewRegistry(logger)
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("kafka-brokers"), "masszap-scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			scheduler := NewScheduler(
				logger,
				persistence,
				registry,
				eventBus,
				cmd.NewQuotaCache(command.String("redis-url")),
			)

			return scheduler.Start(ctx, command.String("jobs-cron"), command.String("campaigns-cron"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
