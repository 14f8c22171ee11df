// migrate copies every property and prospetto from a SQLite file into
// PostgreSQL, merging by slug and re-linking prospetti to their property by
// slug rather than by id.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/ownervalue/internal/backup"
	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/db"
	"github.com/diewo77/ownervalue/internal/logger"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, cfg.App.LogLevel, cfg.App.Dev())

	var (
		source string
		target string
		dryRun bool
	)
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	fs.StringVar(&source, "sqlite", cfg.Database.SQLitePath, "source SQLite file")
	fs.StringVar(&target, "postgres", os.Getenv("DATABASE_DSN"), "target PostgreSQL DSN, URL or key=value")
	fs.BoolVar(&dryRun, "dry-run", false, "report what would be copied without writing")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if target == "" {
		pg := cfg.Database
		pg.Driver, pg.URL = config.DriverPostgres, ""
		target = pg.DSN()
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("source database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	src, err := gorm.Open(sqlite.Open(source), gcfg)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	dst, closeDst, err := openPostgres(ctx, db.NormalizeDSN(target), gcfg)
	if err != nil {
		return err
	}
	defer closeDst()
	log.Info("migrating", "source", source, "target", db.MaskDSN(target))

	sum, err := transfer(ctx, src, dst, dryRun, log)
	if err != nil {
		return err
	}
	fmt.Printf("Properties: %d created, %d updated\n", sum.PropertiesCreated, sum.PropertiesUpdated)
	fmt.Printf("Prospetti: %d created, %d updated\n", sum.ProspectsCreated, sum.ProspectsUpdated)
	if dryRun {
		fmt.Println("Dry-run mode: no changes were applied.")
	}
	return nil
}

// openPostgres hands a lib/pq pool to gorm.
func openPostgres(ctx context.Context, dsn string, gcfg *gorm.Config) (*gorm.DB, func(), error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("open gorm: %w", err)
	}
	return conn, func() { sqlDB.Close() }, nil
}

// transfer migrates dst and merges every record of src into it.
func transfer(ctx context.Context, src, dst *gorm.DB, dryRun bool, log *slog.Logger) (backup.Summary, error) {
	if err := db.Migrate(dst); err != nil {
		return backup.Summary{}, fmt.Errorf("migrate target: %w", err)
	}
	doc, err := backup.Build(ctx, src, time.Now())
	if err != nil {
		return backup.Summary{}, fmt.Errorf("read source: %w", err)
	}
	log.Info("source loaded", "properties", doc.Counts.Properties, "prospects", doc.Counts.Prospects)
	return backup.Restore(ctx, dst, doc, backup.Options{DryRun: dryRun}, log)
}
