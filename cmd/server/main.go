package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/planbook/internal/config"
	"github.com/JonMunkholm/planbook/internal/core"
	_ "github.com/JonMunkholm/planbook/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/planbook/internal/logging"
	"github.com/JonMunkholm/planbook/internal/store"
	"github.com/JonMunkholm/planbook/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"write_max_concurrent", cfg.Writes.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		URL:    cfg.Store.URL,
		Pool: store.PoolConfig{
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
			MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
		},
	})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store ready", "dialect", st.Dialect().String())

	service := core.NewService(st, core.ServiceConfig{
		MaxConcurrentWrites: cfg.Writes.MaxConcurrent,
		WriteWait:           cfg.Writes.MaxWaitTime,
		BatchParallelism:    cfg.Writes.BatchParallelism,
		MaxImageBytes:       cfg.Writes.MaxImageBytes,
		SearchPreviewSize:   cfg.Search.PreviewSize,
	})

	slog.Info("tables registered",
		"count", core.TableCount(),
		"sections", len(core.Sections()),
	)
	for _, sec := range core.Sections() {
		slog.Debug("section", "id", sec.ID, "label", sec.Label, "tables", len(core.BySection(sec.ID)))
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartAuditPurgeScheduler(jobCtx, core.AuditPurgeConfig{
		Retention: cfg.Audit.AuditRetention(),
		Interval:  cfg.Audit.PurgeInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight writes finish before the store closes
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for writes to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("writes did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
