package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eleitoral/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	logger := commonRun(cfg)

	app, err := bootstrap.BuildAPI(cfg, logger)
	if err != nil {
		slog.Error("bootstrap api failed", "error", err.Error())
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := app.Run(ctx)
	stop()
	if err := app.Close(); err != nil {
		slog.Error("api shutdown close failed", "error", err.Error())
	}
	if runErr != nil {
		slog.Error("api stopped with error", "error", runErr.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Run:   serveRun,
	}
}

// migrateCommand builds the runtime, which migrates the configured store, and
// exits.
func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			logger := commonRun(cfg)
			rt, err := bootstrap.BuildRuntime(cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("schema migrated",
				"event", "cli_migrate_done",
				"module", "cmd/api",
				"layer", "platform",
				"store", cfg.Store,
			)
			return rt.Close()
		},
	}
}
