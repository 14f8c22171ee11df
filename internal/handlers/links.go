package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/services"
)

type LinkHandler struct {
	svc *services.LinkService
	log *slog.Logger
}

func NewLinkHandler(svc *services.LinkService, log *slog.Logger) *LinkHandler {
	return &LinkHandler{svc: svc, log: log}
}

// Redirect sends GET /s/{code} to the link target.
func (h *LinkHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Resolve(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, l.Target, http.StatusFound)
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *LinkHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in services.LinkInput
	if !decodeBody(w, r, &in) {
		return
	}
	l, err := h.svc.Upsert(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("code")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
