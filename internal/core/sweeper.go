package core

// sweeper.go provides background cleanup of finished operations.
//
// Every finished operation leaves an in-memory handle behind so late
// status and cancel requests can still find it. The sweeper removes
// handles (and their output files, if configured) once they have been
// finished longer than the retention window.
//
// The sweeper is designed to be long-running and context-aware for
// graceful shutdown. It logs progress but never fails the application.

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// SweeperConfig holds configuration for the handle sweeper.
// All fields have sensible defaults if zero values are provided.
type SweeperConfig struct {
	Retention        time.Duration // How long finished handles stay resident (default: 1h)
	CheckInterval    time.Duration // How often to run (default: 10m)
	RemoveCSVOnSweep bool          // Also delete the stored output file
}

// StartSweeper starts a background goroutine that periodically removes
// finished operation handles past their retention window.
// It runs immediately on start, then every CheckInterval.
// The sweeper stops when the context is cancelled.
func (s *Service) StartSweeper(ctx context.Context, cfg SweeperConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 10 * time.Minute
	}

	slog.Info("operation sweeper started",
		"retention", cfg.Retention.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	s.runSweep(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("operation sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg)
		}
	}
}

// runSweep performs one cleanup cycle.
func (s *Service) runSweep(ctx context.Context, cfg SweeperConfig) {
	start := time.Now()
	cutoff := time.Now().Add(-cfg.Retention).Unix()

	s.mu.Lock()
	var expired []uuid.UUID
	for id, handle := range s.active {
		finished := handle.finishedAt.Load()
		if finished > 0 && finished < cutoff {
			expired = append(expired, id)
			delete(s.active, id)
		}
	}
	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	if cfg.RemoveCSVOnSweep {
		for _, id := range expired {
			op, err := s.operations.Get(ctx, id)
			if err != nil || op.LinkToMatchedCSV == "" {
				continue
			}
			if err := os.Remove(op.LinkToMatchedCSV); err != nil && !os.IsNotExist(err) {
				slog.Error("remove stored output file", "operation_id", id.String(), "error", err)
			}
		}
	}

	slog.Info("swept finished operations",
		"swept", len(expired),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
