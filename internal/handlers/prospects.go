package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/report"
	"github.com/diewo77/ownervalue/internal/services"
)

// DocumentStore locates uploaded documents on disk.
type DocumentStore interface {
	Path(name string) string
	Exists(name string) bool
}

type ProspectHandler struct {
	svc       *services.ProspectService
	docs      DocumentStore
	maxUpload int64
	log       *slog.Logger
}

func NewProspectHandler(svc *services.ProspectService, docs DocumentStore, maxUpload int64, log *slog.Logger) *ProspectHandler {
	return &ProspectHandler{svc: svc, docs: docs, maxUpload: maxUpload, log: log}
}

// List accepts ?property=slug.
func (h *ProspectHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("property"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *ProspectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Upsert reads a multipart form with a "metadata" JSON field and an optional
// "pdf" file, or a JSON body holding the metadata.
func (h *ProspectHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		meta []byte
		up   *services.Upload
	)
	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				httpx.JSONError(w, http.StatusRequestEntityTooLarge, "upload_too_large", nil)
				return
			}
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		meta = []byte(r.FormValue("metadata"))
		file, hdr, err := r.FormFile("pdf")
		switch {
		case err == nil:
			defer file.Close()
			up = &services.Upload{Filename: hdr.Filename, Body: file}
		case !errors.Is(err, http.ErrMissingFile):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
	} else {
		var body json.RawMessage
		if !decodeBody(w, r, &body) {
			return
		}
		meta = metadataFromJSON(body)
	}
	if len(bytes.TrimSpace(meta)) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_metadata", nil)
		return
	}

	in, err := services.ParseProspectMetadata(meta)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, created, err := h.svc.Upsert(r.Context(), in, up)
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

// metadataFromJSON unwraps {"metadata": {...}} or {"metadata": "..."}; any
// other body is the metadata itself.
func metadataFromJSON(body json.RawMessage) []byte {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return body
	}
	inner, ok := wrapper["metadata"]
	if !ok {
		return body
	}
	var s string
	if err := json.Unmarshal(inner, &s); err == nil {
		return []byte(s)
	}
	return inner
}

type assignRequest struct {
	PropertySlug string `json:"propertySlug"`
}

// Assign handles PATCH {propertySlug}; blank detaches.
func (h *ProspectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.Assign(r.Context(), r.PathValue("slug"), req.PropertySlug)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, err = h.svc.Get(r.Context(), p.Slug)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProspectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PDF serves the uploaded document.
func (h *ProspectHandler) PDF(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !p.HasPDF() {
		httpx.JSONError(w, http.StatusNotFound, "no_pdf", nil)
		return
	}
	if !h.docs.Exists(p.PdfPath) {
		httpx.JSONError(w, http.StatusNotFound, "file_missing", nil)
		return
	}
	http.ServeFile(w, r, h.docs.Path(p.PdfPath))
}

// ReportPDF renders the owner report from the saved payload.
func (h *ProspectHandler) ReportPDF(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	m, err := report.ModelFromPayload(p.DatiJSON)
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "no_model", nil)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, report.Build(m, p.UpdatedAt)); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+p.Slug+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
