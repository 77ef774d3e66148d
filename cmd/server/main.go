package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/bulkedit/internal/config"
	"github.com/JonMunkholm/bulkedit/internal/consortia"
	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/core/adapters"
	"github.com/JonMunkholm/bulkedit/internal/database"
	"github.com/JonMunkholm/bulkedit/internal/logging"
	"github.com/JonMunkholm/bulkedit/internal/notes"
	"github.com/JonMunkholm/bulkedit/internal/permissions"
	"github.com/JonMunkholm/bulkedit/internal/records"
	"github.com/JonMunkholm/bulkedit/internal/refdata"
	"github.com/JonMunkholm/bulkedit/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
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
		"db_max_conns", cfg.Database.MaxConns,
		"batch_max_concurrent", cfg.Batch.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Remote-service clients share the configured call timeout.
	refClient := refdata.NewClient(cfg.Remote.Timeout)
	resolver := refdata.NewResolver(refClient, cfg.Cache.ReferenceTTL)
	consortiaClient := consortia.NewClient(cfg.Remote.Timeout)
	permsClient := permissions.NewClient(cfg.Remote.Timeout)
	validator := permissions.NewValidator(permsClient, consortiaClient, cfg.Cache.PermissionTTL)
	recordsClient := records.NewClient(cfg.Remote.Timeout)

	registry := adapters.NewRegistry(resolver, recordsClient)
	slog.Info("entity adapters registered", "kinds", len(registry.Kinds()))

	operationRepo := database.NewOperationRepo(pool)
	errorRepo := database.NewErrorRepo(pool)
	chunkRepo := database.NewChunkRepo(pool)

	service := core.NewService(registry, recordsClient, validator,
		operationRepo, errorRepo, chunkRepo,
		core.ServiceOptions{
			ChunkSize:        cfg.Batch.ChunkSize,
			Workers:          cfg.Batch.Workers,
			MaxConcurrent:    cfg.Batch.MaxConcurrent,
			MaxWait:          cfg.Batch.MaxWaitTime,
			OperationTimeout: cfg.Batch.OperationTimeout,
			StorageDir:       cfg.Storage.Dir,
		})

	consolidator := notes.NewProcessor(resolver, consortiaClient)

	rateLimit := 0
	if cfg.Rate.Enabled {
		rateLimit = cfg.Rate.RequestsPerMinute
	}
	server := web.NewServer(service, consolidator, errorRepo, web.ServerOptions{
		RemoteBaseURL: cfg.Remote.BaseURL,
		RateLimit:     rateLimit,
	})

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartSweeper(jobCtx, core.SweeperConfig{
		Retention:        cfg.Storage.Retention,
		CheckInterval:    cfg.Storage.SweepInterval,
		RemoveCSVOnSweep: true,
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

		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("operations did not drain in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	addr := cfg.Server.Addr()
	slog.Info("server starting", "addr", addr)
	if err := server.Start(addr); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
