package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/voicetree/voicetree/pkg/cmd"
	"github.com/voicetree/voicetree/pkg/log"
	"github.com/voicetree/voicetree/pkg/otelhelper"
	"github.com/voicetree/voicetree/pkg/registry"
)

const defaultPort = 9091

func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("voicetree-api")
}

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "voicetree-api",
		Usage:                 "Create, validate and promote voice bot flows",
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
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the live version cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Voicetree API")

			nodeRegistry := registry.NewRegistry()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			versionCache := cmd.NewVersionCache(ctx, logger, command.String("redis-url"))
			defer func() {
				if err := versionCache.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close version cache", "error", err)
				}
			}()

			var tracer = noopTracer()

			if command.Bool("tracing") {
				t, err := otelhelper.NewTracer(ctx, "voicetree-api")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
				} else {
					tracer = t
				}
			}

			api := NewAPI(
				logger,
				persistence,
				nodeRegistry,
				eventBus,
				versionCache,
				tracer,
			)

			err := api.Start(command.Int("port"))
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
