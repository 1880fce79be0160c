package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/dukex/curator/pkg/cmd"
	"github.com/dukex/curator/pkg/log"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/services"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9091
	defaultMaxDepth = 256
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	command := &cli.Command{
		Name:                  "curator-api",
		Usage:                 "Serve workflow and metadata standard management over HTTP",
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
				Usage:    "Record store URL (file://<dir>, postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "vocabulary-url",
				Usage:   "Vocabulary provider (store or redis://...)",
				Value:   "store",
				Sources: cli.EnvVars("VOCABULARY_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Audit event bus (none, memory, kafka)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.BoolFlag{
				Name:    "audit-log",
				Usage:   "Log every event delivered by the event bus",
				Value:   true,
				Sources: cli.EnvVars("AUDIT_LOG"),
			},
			&cli.IntFlag{
				Name:    "max-traversal-depth",
				Usage:   "Maximum depth of workflow graph traversals",
				Value:   defaultMaxDepth,
				Sources: cli.EnvVars("MAX_TRAVERSAL_DEPTH"),
			},
			&cli.BoolFlag{
				Name:    "revert-requires-upstream",
				Usage:   "Require revert targets to reach their state through transitions",
				Sources: cli.EnvVars("REVERT_REQUIRES_UPSTREAM"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json, tint)",
				Value:   log.FormatText,
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Curator API")

	options := []services.Option{
		services.WithMaxTraversalDepth(command.Int("max-traversal-depth")),
		services.WithRevertRequiresUpstream(command.Bool("revert-requires-upstream")),
	}

	if command.Bool("otel-enabled") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "curator-api")
		if err != nil {
			return err
		}

		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		options = append(options, services.WithTracer(tracer))
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	vocabularies, closeVocabularies, err := cmd.NewVocabularyProvider(ctx, command.String("vocabulary-url"), persistence)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeVocabularies(); err != nil {
			logger.ErrorContext(ctx, "Failed to close vocabulary provider", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	if eventBus != nil {
		defer func() {
			if err := eventBus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		options = append(options, services.WithEventPublisher(eventBus))

		if command.Bool("audit-log") {
			if err := subscribeAuditLog(ctx, eventBus, logger); err != nil {
				return err
			}
		}
	}

	api := NewAPI(logger, persistence, vocabularies, options...)

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start Curator API", "error", err)

		return err
	}

	return nil
}
