package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/db"
	"github.com/diewo77/ownervalue/internal/files"
	"github.com/diewo77/ownervalue/internal/handlers"
	"github.com/diewo77/ownervalue/internal/logger"
	"github.com/diewo77/ownervalue/internal/report"
	"github.com/diewo77/ownervalue/internal/sentryutil"
	"github.com/spf13/pflag"
)

var migrateOnlyFlag = pflag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	pflag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(os.Stdout, cfg.App.LogLevel, cfg.App.Dev())
	slog.SetDefault(log)

	sentryutil.Init(cfg.Sentry, cfg.App.Version, log)
	defer sentryutil.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations completed")
		return nil
	}
	if cfg.App.Migrations {
		if err := db.Migrate(conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations completed")
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if cfg.App.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set, admin endpoints disabled")
	}

	app := NewApp(Deps{
		DB:     conn,
		Files:  files.New(cfg.Storage.Dir),
		Audit:  audit.Open(cfg.Storage.AuditLog, log),
		Hub:    report.NewHub(),
		Log:    log,
		Config: cfg,
		Version: handlers.Version{
			Version: cfg.App.Version,
			Commit:  cfg.App.Commit,
			Env:     cfg.App.Env,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.Read(),
		WriteTimeout: cfg.Server.Write(),
		IdleTimeout:  cfg.Server.Idle(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
