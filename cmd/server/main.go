package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/distance/internal/config"
	"github.com/JonMunkholm/distance/internal/core"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/store"
	"github.com/JonMunkholm/distance/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_concurrent_jobs", cfg.Server.MaxConcurrentJobs,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"run_history", cfg.Database.Enabled(),
	)

	// Run history is optional; without a database the service still works
	ctx := context.Background()
	var runs core.RunStore
	if cfg.Database.Enabled() {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		history := store.New(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create run history schema", "error", err)
			os.Exit(1)
		}
		runs = history

		slog.Info("connected to database", "name", store.DatabaseName(cfg.Database.URL))
	} else {
		slog.Info("DATABASE_URL not set, run history disabled")
	}

	service := core.NewService(runs, core.Options{
		Limiter:       core.NewJobLimiter(cfg.Server.MaxConcurrentJobs, cfg.Server.JobWaitTime),
		MaxRandoms:    cfg.Simulation.MaxRandoms,
		MaxBins:       cfg.Simulation.MaxBins,
		MaxDimensions: cfg.Simulation.MaxDimensions,
	})

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Prune old runs; a no-op without history or DB_RUN_RETENTION
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		MaxAge:        cfg.Database.RunRetention,
		CheckInterval: cfg.Database.RetentionInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running stitches and simulations finish (with timeout)
		jobs := service.Limiter().Status()
		if jobs.Active > 0 {
			slog.Info("waiting for jobs to complete", "active", jobs.Active)
			if err := service.WaitForJobs(shutdownCtx); err != nil {
				slog.Warn("jobs did not complete in time", "error", err)
			} else {
				slog.Info("all jobs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
