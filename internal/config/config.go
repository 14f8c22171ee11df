// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Storage  StorageConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string   `env:"PORT" envDefault:"3001"`
	ReadTimeout  int      `env:"SERVER_READ_TIMEOUT" envDefault:"15"`  // seconds
	WriteTimeout int      `env:"SERVER_WRITE_TIMEOUT" envDefault:"60"` // seconds, uploads included
	IdleTimeout  int      `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`  // seconds
	MaxUploadMB  int64    `env:"MAX_UPLOAD_MB" envDefault:"20"`
	MaxRestoreMB int64    `env:"MAX_RESTORE_MB" envDefault:"10"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// DatabaseConfig holds the connection settings. DSN wins over the discrete
// PostgreSQL fields.
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	URL        string `env:"DATABASE_DSN"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/ownervalue.db"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       int    `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"ownervalue"`
	Password   string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"ownervalue"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	Debug      bool   `env:"DB_DEBUG"`
	MaxRetries uint   `env:"DB_CONNECT_RETRIES" envDefault:"5"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"dev"`
	Commit      string `env:"GIT_COMMIT"`
	Migrations  bool   `env:"MIGRATIONS" envDefault:"true"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// StorageConfig locates files written by the service.
type StorageConfig struct {
	Dir       string `env:"STORAGE_DIR" envDefault:"storage"`
	AuditLog  string `env:"AUDIT_LOG" envDefault:"storage/audit.log"`
	BackupDir string `env:"BACKUP_DIR" envDefault:"backups"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string  `env:"SENTRY_DSN"`
	Environment string  `env:"SENTRY_ENVIRONMENT"`
	SampleRate  float64 `env:"SENTRY_SAMPLE_RATE" envDefault:"1"`
}

// Dev reports whether the app runs in development mode.
func (a AppConfig) Dev() bool {
	return a.Env == "" || a.Env == "development"
}

// DSN returns the connection string for the configured driver: a file path
// for SQLite, a key=value string (or the normalized DATABASE_DSN) for
// PostgreSQL.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		if d.URL != "" {
			return strings.TrimPrefix(d.URL, "file:")
		}
		return d.SQLitePath
	}
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Timeout helpers.
func (s ServerConfig) Read() time.Duration  { return time.Duration(s.ReadTimeout) * time.Second }
func (s ServerConfig) Write() time.Duration { return time.Duration(s.WriteTimeout) * time.Second }
func (s ServerConfig) Idle() time.Duration  { return time.Duration(s.IdleTimeout) * time.Second }

// MaxUploadBytes is the multipart body limit.
func (s ServerConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return s.MaxUploadMB << 20
}

// MaxRestoreBytes bounds the backup document posted to the restore endpoint.
func (s ServerConfig) MaxRestoreBytes() int64 {
	if s.MaxRestoreMB <= 0 {
		return DefaultRestoreBytes
	}
	return s.MaxRestoreMB << 20
}

const DefaultRestoreBytes = 10 << 20

// Load reads a .env file when present, then environment variables.
// Precedence: explicit env var > .env file > default.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.App.Commit == "" {
		cfg.App.Commit = os.Getenv("RENDER_GIT_COMMIT")
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.App.Env
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	// a postgres:// DSN implies the postgres driver
	if u, err := url.Parse(cfg.Database.URL); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		cfg.Database.Driver = DriverPostgres
	}
	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}
