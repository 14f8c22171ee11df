package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/services"
)

type PropertyHandler struct {
	svc *services.PropertyService
	log *slog.Logger
}

func NewPropertyHandler(svc *services.PropertyService, log *slog.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, log: log}
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Upsert answers 201 for a new property and 200 for an update.
func (h *PropertyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in services.PropertyInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, created, err := h.svc.Upsert(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, p)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Delete(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "detachedProspects": n})
}
