package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/config"
	_ "github.com/Nexora-Open-Source/job-feed-sync/docs"
	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	serviceName     = "job-feed-sync"
	shutdownTimeout = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the optional in-process scheduler",
	RunE:  runServe,
}

var serveSyncOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&serveSyncOnStart, "sync-on-start", false, "Run a bulk sync immediately when the scheduler starts")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logging and tracing come up before the services so their startup is observable.
	bootstrap := config.NewConfig()
	logger := middleware.InitLogger(bootstrap.LogLevel)
	logger.Info("Starting job feed sync server")

	tracerProvider := monitoring.InitTracing(serviceName, bootstrap.TracingSampleRatio)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := monitoring.ShutdownTracing(shutdownCtx, tracerProvider); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	appConfig, err := config.NewAppConfig(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application configuration: %w", err)
	}
	defer func() {
		if err := appConfig.Services.Close(); err != nil {
			logger.WithError(err).Error("Failed to close services")
		}
	}()
	cfg := appConfig.Config

	handler, err := appConfig.Services.Container.GetHandler()
	if err != nil {
		return fmt.Errorf("failed to initialize handler: %w", err)
	}

	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET is not set; /cron/sync-feeds will answer 503")
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET is not set; admin endpoints will answer 503")
	}

	limiter := NewRateLimiterFromConfig(cfg)
	go func() {
		ticker := time.NewTicker(cfg.ClientCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.SyncConfig.Schedule != "" {
		orchestrator, err := appConfig.Services.Container.GetOrchestrator()
		if err != nil {
			return fmt.Errorf("failed to initialize orchestrator: %w", err)
		}
		sched = scheduler.New(orchestrator, logger, cfg.SyncConfig.Schedule, cfg.ScheduleFrequency(), cfg.SyncConfig.ScheduleTimeout)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		if serveSyncOnStart {
			sched.RunNow()
		}
	} else if serveSyncOnStart {
		logger.Warn("--sync-on-start ignored because SYNC_SCHEDULE is not set")
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(cfg, handler, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    server.Addr,
			"metrics": "/metrics",
			"swagger": "/swagger/index.html",
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown did not complete cleanly")
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}

	logger.Info("Server stopped")
	return nil
}
