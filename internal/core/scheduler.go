package core

// scheduler.go runs background maintenance for the audit log.
//
// The purge job deletes entries older than the retention period. It runs
// once at start, then every interval, until ctx is cancelled. A failed run
// is logged and retried at the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// AuditPurgeConfig holds configuration for the purge scheduler.
type AuditPurgeConfig struct {
	Retention time.Duration // Age after which entries are deleted (default: 90 days)
	Interval  time.Duration // How often to run (default: 24h)
}

func (c AuditPurgeConfig) withDefaults() AuditPurgeConfig {
	if c.Retention <= 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// StartAuditPurgeScheduler blocks, purging old audit entries periodically.
// Run it in its own goroutine.
func (s *Service) StartAuditPurgeScheduler(ctx context.Context, cfg AuditPurgeConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit purge scheduler started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.runPurgeJob(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg)
		}
	}
}

// runPurgeJob performs one purge cycle.
func (s *Service) runPurgeJob(ctx context.Context, cfg AuditPurgeConfig) {
	start := time.Now()
	purged, err := s.store.PurgeAudit(ctx, start.Add(-cfg.Retention))
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}
	slog.Info("purged audit log entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
