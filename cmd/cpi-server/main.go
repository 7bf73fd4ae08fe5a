package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/stratovia/cpi/pkg/cmd"
	"github.com/stratovia/cpi/pkg/config"
	"github.com/stratovia/cpi/pkg/health"
	"github.com/stratovia/cpi/pkg/log"
	"github.com/stratovia/cpi/pkg/otelhelper"
	"github.com/stratovia/cpi/pkg/queue"
	"github.com/stratovia/cpi/pkg/runner"
)

const defaultPort = 9098

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cli.Command{
		Name:                  "cpi-server",
		Usage:                 "Serve the provider host API",
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
				Name:    "database-url",
				Usage:   "Database URL for the invocation audit store (empty runs without history)",
				Value:   "sqlite://cpi.db",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing provider plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Redis URL for the invocation intake queue (empty disables the queue worker)",
				Sources: cli.EnvVars("QUEUE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list the queue worker drains",
				Value:   "cpi:invocations",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "health-schedule",
				Usage:   "Cron schedule for provider health sweeps",
				Value:   health.DefaultSchedule,
				Sources: cli.EnvVars("HEALTH_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "settings-file",
				Usage:   "Path to the YAML file overriding provider settings",
				Sources: cli.EnvVars("SETTINGS_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runServer,
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runServer(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cpi-server")

	logger.InfoContext(ctx, "Initializing CPI host")

	st, err := cmd.NewStore(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	if st != nil {
		defer func() {
			if err := st.Close(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to close audit store", "error", err)
			}
		}()
	}

	bus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	// The audit trail subscribes before anything can publish, so even
	// boot-time registrations land in the log.
	if err := attachEventLog(bus, logger); err != nil {
		return err
	}

	if err := bus.Subscribe(ctx); err != nil {
		return err
	}

	reg, err := cmd.NewRegistry(logger, bus, command.String("plugins-path"))
	if err != nil {
		return err
	}

	overlay, err := config.Load(command.String("settings-file"))
	if err != nil {
		return err
	}

	runnerOpts := []runner.Option{runner.WithEventBus(bus)}
	if st != nil {
		runnerOpts = append(runnerOpts, runner.WithStore(st))
	}

	// Tracing is opt-in: without an endpoint the exporter has nowhere to
	// send spans.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err := otelhelper.NewTracer(ctx, "cpi-server")
		if err != nil {
			return err
		}

		runnerOpts = append(runnerOpts, runner.WithTracer(tracer))
	}

	run := runner.NewRunner(logger, reg, runnerOpts...)

	checkerOpts := []health.Option{
		health.WithEventBus(bus),
		health.WithSchedule(command.String("health-schedule")),
	}
	if st != nil {
		checkerOpts = append(checkerOpts, health.WithStore(st))
	}

	checker, err := health.NewChecker(logger, reg, checkerOpts...)
	if err != nil {
		return err
	}

	if err := checker.Start(ctx); err != nil {
		return err
	}
	defer checker.Stop()

	if queueURL := command.String("queue-url"); queueURL != "" {
		worker, err := queue.NewWorker(logger, run, queueURL, command.String("queue-name"))
		if err != nil {
			return err
		}

		if err := worker.Start(ctx); err != nil {
			return err
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := worker.Stop(stopCtx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop queue worker cleanly", "error", err)
			}
		}()
	}

	api := NewAPI(logger, reg, run, st, overlay, checker)
	app := api.App()

	serverErr := make(chan error, 1)

	go func() {
		serverErr <- app.Listen(":" + strconv.Itoa(command.Int("port")))
	}()

	logger.InfoContext(ctx, "CPI host started", "port", command.Int("port"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-sigChan:
		logger.InfoContext(ctx, "Shutting down CPI host", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to stop HTTP server cleanly", "error", err)
	}

	return nil
}
