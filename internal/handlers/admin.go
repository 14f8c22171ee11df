package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/backup"
	"github.com/diewo77/ownervalue/internal/config"
	"gorm.io/gorm"
)

// AuditReader returns the most recent audit entries.
type AuditReader interface {
	Tail(n int) ([]audit.Entry, error)
}

type AdminHandler struct {
	db    *gorm.DB
	trail AuditReader
	rec   audit.Recorder
	log   *slog.Logger
	now   func() time.Time
	// maxRestore bounds the posted backup document.
	maxRestore int64
}

func NewAdminHandler(db *gorm.DB, trail AuditReader, rec audit.Recorder, log *slog.Logger) *AdminHandler {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &AdminHandler{db: db, trail: trail, rec: rec, log: log, now: time.Now, maxRestore: config.DefaultRestoreBytes}
}

// WithRestoreLimit sets the body limit of Restore. Non-positive values keep
// the current one.
func (h *AdminHandler) WithRestoreLimit(n int64) *AdminHandler {
	if n > 0 {
		h.maxRestore = n
	}
	return h
}

// Audit answers GET /api/audit?limit=n, newest last.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	entries, err := h.trail.Tail(limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "limit": min(limit, audit.MaxTail)})
}

// Backup returns the full export document.
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Build(r.Context(), h.db, h.now())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(doc.GeneratedAt)+`"`)
	httpx.JSON(w, http.StatusOK, doc)
}

// Restore merges a posted document. ?dryRun=1 reports without writing and
// ?truncate=1 wipes both tables first.
func (h *AdminHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var doc backup.Document
	if !decodeBodyLimit(w, r, &doc, h.maxRestore) {
		return
	}
	q := r.URL.Query()
	opts := backup.Options{DryRun: flag(q.Get("dryRun")), Truncate: flag(q.Get("truncate"))}
	sum, err := backup.Restore(r.Context(), h.db, doc, opts, h.log)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !opts.DryRun {
		h.rec.Record(r.Context(), audit.Entry{Action: audit.ActionRestore, Entity: "backup", Detail: map[string]any{
			"truncate":          opts.Truncate,
			"propertiesCreated": sum.PropertiesCreated,
			"propertiesUpdated": sum.PropertiesUpdated,
			"prospectsCreated":  sum.ProspectsCreated,
			"prospectsUpdated":  sum.ProspectsUpdated,
		}})
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func flag(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
