package core

// scheduler.go provides background maintenance of the run history.
//
// Currently implements retention: runs older than RetentionConfig.MaxAge
// are deleted once on start and then every CheckInterval. A failed prune is
// logged and retried on the next tick; it never stops the server.

import (
	"context"
	"log/slog"
	"time"
)

// RunPruner is implemented by run stores that can delete old runs.
// *store.Store implements it.
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the retention scheduler.
type RetentionConfig struct {
	MaxAge        time.Duration // Runs older than this are deleted
	CheckInterval time.Duration // How often to prune (default: 24h)
}

// StartRetentionScheduler prunes old runs until ctx is cancelled.
// It returns immediately when history is disabled, MaxAge is not positive
// or the store cannot delete runs.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	pruner, ok := s.runs.(RunPruner)
	if !ok || cfg.MaxAge <= 0 {
		return
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("retention scheduler started",
		"max_age", cfg.MaxAge,
		"check_interval", cfg.CheckInterval,
	)

	// Run immediately on startup
	s.runRetentionJob(ctx, pruner, cfg.MaxAge)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, pruner, cfg.MaxAge)
		}
	}
}

// runRetentionJob performs one prune.
func (s *Service) runRetentionJob(ctx context.Context, pruner RunPruner, maxAge time.Duration) int64 {
	start := s.now()
	cutoff := start.Add(-maxAge)

	deleted, err := pruner.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("prune runs failed", "error", err)
		return 0
	}

	slog.Info("pruned old runs",
		"runs_deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return deleted
}
