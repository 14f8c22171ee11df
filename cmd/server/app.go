package main

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/ownervalue/auth"
	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/files"
	"github.com/diewo77/ownervalue/internal/handlers"
	"github.com/diewo77/ownervalue/internal/middleware"
	"github.com/diewo77/ownervalue/internal/report"
	"github.com/diewo77/ownervalue/internal/services"
	"gorm.io/gorm"
)

// Deps are the collaborators the application is built from.
type Deps struct {
	DB      *gorm.DB
	Files   *files.Store
	Audit   *audit.Log
	Hub     *report.Hub
	Log     *slog.Logger
	Config  *config.Config
	Version handlers.Version
}

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	deps    Deps
}

// NewApp creates a new application with all routes configured.
func NewApp(d Deps) *App {
	if d.Hub == nil {
		d.Hub = report.NewHub()
	}
	app := &App{mux: http.NewServeMux(), deps: d}
	app.setupRoutes()
	app.handler = middleware.Chain(app.mux,
		middleware.RequestID,
		middleware.Sentry,
		middleware.Recovery(d.Log),
		middleware.Logging(d.Log),
		middleware.CORS(d.Config.Server.CORSOrigins),
	)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	d := a.deps
	log := d.Log

	properties := handlers.NewPropertyHandler(services.NewPropertyService(d.DB, d.Audit, log), log)
	prospects := handlers.NewProspectHandler(services.NewProspectService(d.DB, d.Files, d.Audit, log), d.Files, d.Config.Server.MaxUploadBytes(), log)
	slugs := handlers.NewSlugHandler(services.NewSlugService(d.DB), log)
	links := handlers.NewLinkHandler(services.NewLinkService(d.DB), log)
	calc := handlers.NewCalcHandler(log)
	reports := handlers.NewReportHandler(d.Hub, log)
	admin := handlers.NewAdminHandler(d.DB, d.Audit, d.Audit, log).WithRestoreLimit(d.Config.Server.MaxRestoreBytes())
	health := handlers.NewHealthHandler(d.DB, d.Version)

	// JSON routes are compressed; files, PDFs and event streams are not.
	api := func(pattern string, h http.HandlerFunc) {
		a.mux.Handle(pattern, middleware.Gzip(h))
	}
	requireAdmin := auth.RequireAdminKey(d.Config.App.AdminAPIKey)
	adminAPI := func(pattern string, h http.HandlerFunc) {
		a.mux.Handle(pattern, requireAdmin(middleware.Gzip(h)))
	}

	// ─────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", health.Health)
	a.mux.HandleFunc("GET /healthz", health.Healthz)
	a.mux.HandleFunc("GET /api/version", health.Version)

	// ─────────────────────────────────────────────────────────────────────
	// Properties
	// ─────────────────────────────────────────────────────────────────────
	api("GET /api/properties", properties.List)
	api("POST /api/properties", properties.Upsert)
	api("GET /api/properties/{slug}", properties.Get)
	api("DELETE /api/properties/{slug}", properties.Delete)

	// ─────────────────────────────────────────────────────────────────────
	// Prospetti
	// ─────────────────────────────────────────────────────────────────────
	api("GET /api/prospetti", prospects.List)
	api("POST /api/prospetti", prospects.Upsert)
	api("GET /api/prospetti/{slug}", prospects.Get)
	api("PATCH /api/prospetti/{slug}", prospects.Assign)
	api("DELETE /api/prospetti/{slug}", prospects.Delete)
	a.mux.HandleFunc("GET /api/prospetti/{slug}/pdf", prospects.PDF)
	a.mux.HandleFunc("GET /api/prospetti/{slug}/report.pdf", prospects.ReportPDF)

	api("POST /api/calc", calc.Compute)
	api("GET /api/slugs/suggest", slugs.Suggest)

	// ─────────────────────────────────────────────────────────────────────
	// Report sync
	// ─────────────────────────────────────────────────────────────────────
	api("PUT /api/report/{channel}", reports.Publish)
	api("GET /api/report/{channel}", reports.Latest)
	a.mux.HandleFunc("GET /api/report/{channel}/events", reports.Events)

	// ─────────────────────────────────────────────────────────────────────
	// Short links
	// ─────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /s/{code}", links.Redirect)
	adminAPI("GET /api/admin/links", links.List)
	adminAPI("POST /api/admin/links", links.Upsert)
	adminAPI("DELETE /api/admin/links/{code}", links.Delete)

	// ─────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────
	adminAPI("GET /api/audit", admin.Audit)
	adminAPI("GET /api/admin/backup", admin.Backup)
	adminAPI("POST /api/admin/restore", admin.Restore)

	// ─────────────────────────────────────────────────────────────────────
	// Uploaded documents
	// ─────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(d.Files.Dir))))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
}
