package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rosterhq/rosterd/internal/account"
	"github.com/rosterhq/rosterd/internal/config"
	"github.com/rosterhq/rosterd/internal/credential"
	"github.com/rosterhq/rosterd/internal/infra"
	"github.com/rosterhq/rosterd/internal/logging"
	"github.com/rosterhq/rosterd/internal/routes"
	"github.com/rosterhq/rosterd/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, infra.PoolSettings{
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBConnMaxIdle,
	})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := infra.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("apply schema migrations", "error", err)
		os.Exit(1)
	}

	hasher, err := credential.NewHasher(credential.DefaultParams())
	if err != nil {
		logger.Error("build hasher", "error", err)
		os.Exit(1)
	}

	// Upgrade any legacy plaintext credentials before taking login traffic.
	// The sweep is idempotent, so a failure here is safe to retry on the
	// next startup, but it must not be skipped.
	repo := account.NewPostgresRepository(db)
	migrator := credential.NewMigrator(hasher, repo, logger)
	migrated, err := migrator.Run(ctx)
	if err != nil {
		logger.Error("credential migration sweep", "error", err)
		os.Exit(1)
	}
	if migrated > 0 {
		logger.Info("upgraded legacy credentials", slog.Int("count", migrated))
	}

	deps := routes.Deps{Cfg: cfg, DB: db, Hasher: hasher, Logger: logger, SweepDone: true}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
