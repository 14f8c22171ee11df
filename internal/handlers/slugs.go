package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/services"
)

type SlugHandler struct {
	svc *services.SlugService
	log *slog.Logger
}

func NewSlugHandler(svc *services.SlugService, log *slog.Logger) *SlugHandler {
	return &SlugHandler{svc: svc, log: log}
}

// Suggest answers GET ?q=candidate&current=slug.
func (h *SlugHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s, err := h.svc.Suggest(r.Context(), q.Get("q"), q.Get("current"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}
