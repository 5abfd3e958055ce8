package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/fieldserve/importer/internal/config"
	"github.com/fieldserve/importer/internal/contacts"
	"github.com/fieldserve/importer/internal/importer"
	"github.com/fieldserve/importer/internal/logging"
	"github.com/fieldserve/importer/internal/web"
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
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_retention", cfg.Import.Retention,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	// Header alias table: configured JSON file, or compiled-in defaults
	aliases := importer.DefaultAliasTable()
	if cfg.Import.AliasFile != "" {
		aliases, err = importer.LoadAliasTable(cfg.Import.AliasFile)
		if err != nil {
			slog.Error("failed to load alias table", "path", cfg.Import.AliasFile, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded alias table", "path", cfg.Import.AliasFile, "fields", len(aliases.Fields()))
	}

	engine := importer.New(
		importer.NewMemorySessionStore(),
		contacts.NewPostgresStore(pool),
		importer.Config{
			Aliases:       aliases,
			Retention:     cfg.Import.Retention,
			MaxConcurrent: cfg.Import.MaxConcurrent,
			MaxSlotWait:   cfg.Import.MaxSlotWait,
			PassTimeout:   cfg.Import.PassTimeout,
		},
	)

	server := web.NewServer(engine, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Periodically sweep terminal sessions past the retention window
	go runCleanupSweeper(jobCtx, engine, cfg.Import.SweepInterval)

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

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for active processing passes to complete (with timeout)
		limiter := engine.Limiter()
		if limiter.ActiveCount() > 0 {
			slog.Info("waiting for imports to complete", "active", limiter.ActiveCount())
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// runCleanupSweeper invokes the engine's cleanup on a fixed interval
// until the context is cancelled.
func runCleanupSweeper(ctx context.Context, engine *importer.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := engine.Cleanup(engine.Retention()); removed > 0 {
				slog.Info("cleanup sweep", "removed", removed)
			}
		}
	}
}
