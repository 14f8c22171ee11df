package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/models"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"url untouched", "postgres://u:p@h/db", "postgres://u:p@h/db"},
		{"kv adds sslmode", `"host=h  user=u dbname=db"`, "host=h user=u dbname=db sslmode=disable"},
		{"kv keeps sslmode", "host=h user=u dbname=db sslmode=require", "host=h user=u dbname=db sslmode=require"},
		{"garbage", "nonsense", "nonsense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDSN(tt.in); got != tt.want {
				t.Fatalf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=ov password=s3 dbname=ownervalue sslmode=disable")
	want := "postgres://ov:s3@db:5432/ownervalue?sslmode=disable"
	if got != want {
		t.Fatalf("expected %s got %s", want, got)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Fatalf("incomplete dsn must pass through, got %s", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("postgres://u:secret@h:5432/db"); got != "postgres://u:***@h:5432/db" {
		t.Fatalf("unexpected url mask %s", got)
	}
	if got := MaskDSN("host=h password=secret dbname=db"); got != "host=h password=*** dbname=db" {
		t.Fatalf("unexpected kv mask %s", got)
	}
	if got := MaskDSN("data/ownervalue.db"); got != "data/ownervalue.db" {
		t.Fatalf("sqlite path must be unchanged, got %s", got)
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ov.db")
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path, MaxRetries: 1}

	conn, err := Open(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, m := range models.All() {
		if !conn.Migrator().HasTable(m) {
			t.Fatalf("expected table for %T", m)
		}
	}
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	if _, _, err := Dialector(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error")
	}
}
