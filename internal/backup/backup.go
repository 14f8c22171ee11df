// Package backup exports every property and prospect to a JSON document and
// restores such a document into a database.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diewo77/ownervalue/internal/models"
	"github.com/klauspost/compress/gzip"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is the backup file layout.
type Document struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Counts      Counts           `json:"counts"`
	Properties  []PropertyRecord `json:"properties"`
	Prospects   []ProspectRecord `json:"prospects"`
}

type Counts struct {
	Properties int `json:"properties"`
	Prospects  int `json:"prospects"`
}

// PropertyRecord is a property with the short form of its prospects.
type PropertyRecord struct {
	ID            uint          `json:"id"`
	Slug          string        `json:"slug"`
	Nome          string        `json:"nome"`
	Indirizzo     string        `json:"indirizzo"`
	Citta         string        `json:"citta"`
	OwnerNome     string        `json:"ownerNome"`
	OwnerEmail    string        `json:"ownerEmail"`
	OwnerTelefono string        `json:"ownerTelefono"`
	Note          string        `json:"note"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Prospects     []ProspectRef `json:"prospects"`
}

type ProspectRef struct {
	ID         uint      `json:"id"`
	Slug       string    `json:"slug"`
	Titolo     string    `json:"titolo"`
	Indirizzo1 string    `json:"indirizzo1"`
	Indirizzo2 string    `json:"indirizzo2"`
	PdfPath    string    `json:"pdfPath"`
	PropertyID *uint     `json:"propertyId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProspectRecord is a prospect with its full payload and the short form of
// its property.
type ProspectRecord struct {
	ID           uint            `json:"id"`
	Slug         string          `json:"slug"`
	Titolo       string          `json:"titolo"`
	Indirizzo1   string          `json:"indirizzo1"`
	Indirizzo2   string          `json:"indirizzo2"`
	DatiJSON     json.RawMessage `json:"datiJson"`
	PdfPath      string          `json:"pdfPath"`
	PropertyID   *uint           `json:"propertyId"`
	PropertySlug string          `json:"propertySlug,omitempty"`
	Property     *PropertyRef    `json:"property"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type PropertyRef struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Nome string `json:"nome"`
}

// Build reads both tables ordered by slug.
func Build(ctx context.Context, db *gorm.DB, now time.Time) (Document, error) {
	var props []models.Property
	err := db.WithContext(ctx).
		Preload("Prospects", func(db *gorm.DB) *gorm.DB { return db.Order("slug asc") }).
		Order("slug asc").
		Find(&props).Error
	if err != nil {
		return Document{}, fmt.Errorf("backup: load properties: %w", err)
	}
	var prospects []models.Prospect
	if err := db.WithContext(ctx).Preload("Property").Order("slug asc").Find(&prospects).Error; err != nil {
		return Document{}, fmt.Errorf("backup: load prospects: %w", err)
	}

	doc := Document{
		GeneratedAt: now.UTC(),
		Counts:      Counts{Properties: len(props), Prospects: len(prospects)},
		Properties:  make([]PropertyRecord, 0, len(props)),
		Prospects:   make([]ProspectRecord, 0, len(prospects)),
	}
	for _, p := range props {
		rec := PropertyRecord{
			ID: p.ID, Slug: p.Slug, Nome: p.Nome, Indirizzo: p.Indirizzo, Citta: p.Citta,
			OwnerNome: p.OwnerNome, OwnerEmail: p.OwnerEmail, OwnerTelefono: p.OwnerTelefono, Note: p.Note,
			CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
			Prospects: make([]ProspectRef, 0, len(p.Prospects)),
		}
		for _, pr := range p.Prospects {
			rec.Prospects = append(rec.Prospects, ProspectRef{
				ID: pr.ID, Slug: pr.Slug, Titolo: pr.Titolo, Indirizzo1: pr.Indirizzo1, Indirizzo2: pr.Indirizzo2,
				PdfPath: pr.PdfPath, PropertyID: pr.PropertyID, CreatedAt: pr.CreatedAt, UpdatedAt: pr.UpdatedAt,
			})
		}
		doc.Properties = append(doc.Properties, rec)
	}
	for _, pr := range prospects {
		rec := ProspectRecord{
			ID: pr.ID, Slug: pr.Slug, Titolo: pr.Titolo, Indirizzo1: pr.Indirizzo1, Indirizzo2: pr.Indirizzo2,
			DatiJSON: json.RawMessage(pr.DatiJSON), PdfPath: pr.PdfPath, PropertyID: pr.PropertyID,
			CreatedAt: pr.CreatedAt, UpdatedAt: pr.UpdatedAt,
		}
		if len(rec.DatiJSON) == 0 {
			rec.DatiJSON = json.RawMessage("null")
		}
		if pr.Property != nil {
			rec.Property = &PropertyRef{ID: pr.Property.ID, Slug: pr.Property.Slug, Nome: pr.Property.Nome}
		}
		doc.Prospects = append(doc.Prospects, rec)
	}
	return doc, nil
}

// FileName is the default name of a backup taken at t.
func FileName(t time.Time) string {
	return "backup-" + t.Format("20060102-150405") + ".json"
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("backup: encode: %w", err)
	}
	return nil
}

// Read decodes a backup document.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("backup: decode: %w", err)
	}
	return doc, nil
}

// WriteFile stores doc at path, gzip-compressed when path ends in .gz.
func WriteFile(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("backup: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", path, err)
	}
	defer f.Close()

	if !isGzip(path) {
		if err := Write(f, doc); err != nil {
			return err
		}
		return f.Close()
	}
	zw := gzip.NewWriter(f)
	zw.Name = strings.TrimSuffix(filepath.Base(path), ".gz")
	zw.ModTime = doc.GeneratedAt
	if err := Write(zw, doc); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("backup: gzip: %w", err)
	}
	return f.Close()
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer f.Close()
	if !isGzip(path) {
		return Read(f)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		return Document{}, fmt.Errorf("backup: gzip: %w", err)
	}
	defer zr.Close()
	return Read(zr)
}

func isGzip(path string) bool { return strings.HasSuffix(strings.ToLower(path), ".gz") }

// dati returns the stored payload of a record. Older backups carry it as a
// JSON-encoded string.
func (r ProspectRecord) dati() datatypes.JSON {
	raw := strings.TrimSpace(string(r.DatiJSON))
	if raw == "" || raw == "null" {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil && json.Valid([]byte(s)) {
			return datatypes.JSON(s)
		}
	}
	return datatypes.JSON(raw)
}

// datiSlug returns the propertySlug stored in the payload, if any.
func (r ProspectRecord) datiSlug() string {
	var obj map[string]any
	if err := json.Unmarshal(r.dati(), &obj); err != nil {
		return ""
	}
	s, _ := obj[models.KeyPropertySlug].(string)
	return strings.TrimSpace(s)
}
