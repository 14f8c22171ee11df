package config

import "testing"

func TestParseDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != "3001" {
		t.Fatalf("expected port 3001 got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver got %s", cfg.Database.Driver)
	}
	if got := cfg.Database.DSN(); got != "data/ownervalue.db" {
		t.Fatalf("unexpected sqlite dsn %q", got)
	}
	if !cfg.App.Migrations {
		t.Fatalf("expected migrations enabled by default")
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
}

func TestParsePostgresFromURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db:5432/ov?sslmode=disable")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN() != "postgres://u:p@db:5432/ov?sslmode=disable" {
		t.Fatalf("unexpected dsn %s", cfg.Database.DSN())
	}
}

func TestParsePostgresFields(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "host=pg port=5432 user=ownervalue password=secret dbname=ownervalue sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DATABASE_DSN", "")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestMaxUploadBytes(t *testing.T) {
	if got := (ServerConfig{MaxUploadMB: 2}).MaxUploadBytes(); got != 2<<20 {
		t.Fatalf("expected 2MiB got %d", got)
	}
	if got := (ServerConfig{}).MaxUploadBytes(); got != 20<<20 {
		t.Fatalf("expected default 20MiB got %d", got)
	}
}

func TestMaxRestoreBytes(t *testing.T) {
	if got := (ServerConfig{MaxRestoreMB: 50}).MaxRestoreBytes(); got != 50<<20 {
		t.Fatalf("expected 50MiB got %d", got)
	}
	if got := (ServerConfig{}).MaxRestoreBytes(); got != 10<<20 {
		t.Fatalf("expected default 10MiB got %d", got)
	}
}
