package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/auto-dns/myapp/internal/app"
	"github.com/auto-dns/myapp/internal/config"
	"github.com/auto-dns/myapp/internal/database"
	"github.com/auto-dns/myapp/internal/logger"
	"github.com/auto-dns/myapp/internal/metrics"
	"github.com/auto-dns/myapp/internal/registry"
	"github.com/auto-dns/myapp/internal/server"
)

const deregisterTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the application with its database connection and HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration.
		cfg := cmd.Context().Value(configKey).(*config.Config)

		// Set up logger.
		logInstance := logger.SetupLogger(&cfg.Logging)

		// Set up telemetry.
		promRegistry := prometheus.NewRegistry()
		telemetry, err := metrics.NewPrometheusCollector(promRegistry)
		if err != nil {
			return fmt.Errorf("failed to create telemetry collector: %w", err)
		}

		// Database connection handle.
		conn, err := database.NewConnection(&cfg.Database, logInstance, telemetry)
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		// Create the application.
		opts := []app.Option{app.WithLogger(logInstance), app.WithTelemetry(telemetry)}
		if cfg.Server.Enabled {
			opts = append(opts, app.WithServer(server.New(&cfg.Server, logInstance, promRegistry)))
		}
		var application application = app.New(cfg.App.Name, opts...)

		// Create a context with cancellation for graceful shutdown.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Listen for OS signals.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logInstance.Info().Msgf("Received signal: %v", sig)
			cancel()
		}()

		// Connect the database; release is guaranteed on the way out.
		if err := conn.Connect(ctx); err != nil {
			return fmt.Errorf("database connect error: %w", err)
		}
		defer func() {
			if err := conn.Disconnect(); err != nil {
				logInstance.Error().Err(err).Msg("Database disconnect failed")
			}
		}()

		// Register this instance's presence.
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown-host"
		}
		var instances registry.Registry = registry.NewEtcdRegistry(conn.Client(), &cfg.Database, hostname, logInstance, telemetry)
		if err := instances.Register(ctx, cfg.App.Name); err != nil {
			return fmt.Errorf("instance register error: %w", err)
		}
		defer func() {
			deregCtx, deregCancel := context.WithTimeout(context.Background(), deregisterTimeout)
			defer deregCancel()
			if err := instances.Deregister(deregCtx); err != nil {
				logInstance.Error().Err(err).Msg("Instance deregister failed")
			}
		}()

		// Start the server hook and run the application.
		if err := application.StartServer(ctx); err != nil {
			return fmt.Errorf("server start error: %w", err)
		}
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		// Keep the instance lease alive until shutdown.
		return instances.Heartbeat(ctx)
	},
}
