/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/timegate/internal/config"
	"github.com/friendsincode/timegate/internal/db"
	"github.com/friendsincode/timegate/internal/logging"
	"github.com/friendsincode/timegate/internal/repository"
	"github.com/friendsincode/timegate/internal/server"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/friendsincode/timegate/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "timegate",
	Short:         "timegate - scheduled machine lockout",
	Long:          "timegate watches weekly blocking windows and shuts the machine down when one begins.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the watcher",
	Long:  "Load schedules, start the watcher loop, the reloader and the local HTTP API",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServer(ctx)
}

// runServer runs the watcher until ctx is cancelled. SIGHUP reloads the
// schedules from storage.
func runServer(ctx context.Context) error {
	logger.Info().Str("version", version.Version).Msg("timegate starting")

	tracerProvider, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "timegate",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info().Msg("SIGHUP received, reloading schedules")
				srv.RequestReload()
			}
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("timegate stopped")
	return nil
}

// openRepository connects to the configured database, creating tables when
// needed. The returned func closes the connection.
func openRepository() (*repository.Repository, func(), error) {
	database, err := initDatabase()
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(database); err != nil {
		_ = db.Close(database)
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	closeFn := func() { _ = db.Close(database) }
	return repository.New(database, logger), closeFn, nil
}

// initDatabase initializes the database connection (used by management commands)
func initDatabase() (*gorm.DB, error) {
	return db.Connect(cfg)
}
