// Package db opens the gorm connection for the configured driver and applies
// the schema.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/diewo77/ownervalue/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database described by cfg, retrying with exponential
// backoff while the server is not reachable yet.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	dialector, dsn, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	tries := cfg.MaxRetries
	if tries == 0 {
		tries = 1
	}
	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		attempt++
		conn, err := gorm.Open(dialector, gcfg)
		if err != nil {
			return nil, err
		}
		if err := conn.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		return conn, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(2*time.Minute),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("db connect failed, retrying", "attempt", attempt, "retry_in", next.String(), "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	log.Info("db connected", "driver", cfg.Driver, "dsn", MaskDSN(dsn))
	return conn, nil
}

// Dialector returns the gorm dialector and effective DSN for cfg. SQLite
// parent directories are created when needed.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, string, error) {
	dsn := cfg.DSN()
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn = NormalizeDSN(dsn)
		if dsn == "" {
			return nil, "", fmt.Errorf("db: empty postgres DSN")
		}
		return postgres.Open(dsn), dsn, nil
	case config.DriverSQLite, "":
		if dsn == "" {
			return nil, "", fmt.Errorf("db: empty sqlite path")
		}
		if !IsMemorySQLite(dsn) {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, "", fmt.Errorf("db: create sqlite dir: %w", err)
				}
			}
		}
		return sqlite.Open(dsn), dsn, nil
	default:
		return nil, "", fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
}
