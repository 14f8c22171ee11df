package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/db"
	"github.com/diewo77/ownervalue/internal/files"
	"github.com/diewo77/ownervalue/internal/handlers"
	"github.com/diewo77/ownervalue/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupServer(t *testing.T, adminKey string) *httptest.Server {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.Config{}
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.App.AdminAPIKey = adminKey
	log := logger.Discard()
	dir := t.TempDir()
	app := NewApp(Deps{
		DB:      conn,
		Files:   files.New(dir),
		Audit:   audit.Open(filepath.Join(dir, "audit.log"), log),
		Log:     log,
		Config:  cfg,
		Version: handlers.Version{Version: "test"},
	})
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEndToEndPropertyProspectFlow(t *testing.T) {
	srv := setupServer(t, "s3cret")

	resp := do(t, http.MethodPost, srv.URL+"/api/properties", `{"nome":"Casa Blu"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/prospetti", `{"indirizzoRiga1":"Via Roma 12","propertySlug":"casa-blu"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/slugs/suggest?q=Via+Roma+12", "", nil)
	var sug struct {
		Slug string `json:"slug"`
	}
	json.NewDecoder(resp.Body).Decode(&sug)
	if sug.Slug == "" || sug.Slug == "via-roma-12" {
		t.Fatalf("expected a free slug got %q", sug.Slug)
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/properties", `{"slug":"via-roma-12"}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/properties/casa-blu", "", nil)
	var del struct {
		Success  bool `json:"success"`
		Detached int  `json:"detachedProspects"`
	}
	json.NewDecoder(resp.Body).Decode(&del)
	if !del.Success || del.Detached != 1 {
		t.Fatalf("unexpected delete answer %+v", del)
	}

	resp = do(t, http.MethodGet, srv.URL+"/nowhere", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
}

func TestEndToEndAdminGuard(t *testing.T) {
	srv := setupServer(t, "s3cret")

	if resp := do(t, http.MethodGet, srv.URL+"/api/audit", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	resp := do(t, http.MethodGet, srv.URL+"/api/admin/backup", "", map[string]string{"X-Admin-Key": "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "backup-") {
		t.Fatalf("missing attachment header")
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/admin/links", `{"code":"demo","target":"/api/version"}`, map[string]string{"Authorization": "Bearer s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	r, err := client.Get(srv.URL + "/s/demo")
	if err != nil {
		t.Fatalf("redirect: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusFound || r.Header.Get("Location") != "/api/version" {
		t.Fatalf("unexpected redirect %d %s", r.StatusCode, r.Header.Get("Location"))
	}
}

func TestEndToEndAdminDisabled(t *testing.T) {
	srv := setupServer(t, "")
	if resp := do(t, http.MethodGet, srv.URL+"/api/audit", "", map[string]string{"X-Admin-Key": "x"}); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.StatusCode)
	}
}

func TestEndToEndGzipAndCORS(t *testing.T) {
	srv := setupServer(t, "")
	for i := 0; i < 20; i++ {
		do(t, http.MethodPost, srv.URL+"/api/properties", `{"nome":"Casa numero `+strings.Repeat("x", i+1)+`","note":"`+strings.Repeat("lorem ipsum ", 20)+`"}`, nil)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/properties", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, _ := io.ReadAll(zr)
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		t.Fatalf("unexpected body %q", raw)
	}
}
