package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/ownervalue/httpx"
	"gorm.io/gorm"
)

// Version describes the running build.
type Version struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Env     string `json:"env"`
}

type HealthHandler struct {
	db      *gorm.DB
	version Version
	started time.Time
}

func NewHealthHandler(db *gorm.DB, v Version) *HealthHandler {
	return &HealthHandler{db: db, version: v, started: time.Now()}
}

// Health is the liveness probe; it never touches the database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Healthz pings the database.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.version)
}
