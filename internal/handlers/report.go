package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/report"
)

// keepAlive is the comment interval on idle event streams.
const keepAlive = 25 * time.Second

type ReportHandler struct {
	hub *report.Hub
	log *slog.Logger
}

func NewReportHandler(hub *report.Hub, log *slog.Logger) *ReportHandler {
	return &ReportHandler{hub: hub, log: log}
}

// Publish stores the body, a model JSON object, as the channel's latest value.
func (h *ReportHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var model map[string]json.RawMessage
	if !decodeBody(w, r, &model) {
		return
	}
	if model == nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_model", nil)
		return
	}
	raw, err := json.Marshal(model)
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("encode model: %w", err))
		return
	}
	u := h.hub.Publish(r.PathValue("channel"), raw)
	httpx.JSON(w, http.StatusOK, map[string]any{"channel": u.Channel, "at": u.At})
}

func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.hub.Latest(r.PathValue("channel"))
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// Events streams every update of the channel as server-sent events.
func (h *ReportHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.DebugContext(r.Context(), "event stream keeps the server write deadline", "error", err)
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.WarnContext(r.Context(), "event stream without flush support", "error", err)
		return
	}

	updates := h.hub.Subscribe(r.Context(), r.PathValue("channel"))
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: model\ndata: %s\n\n", data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
