package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/models"
	"github.com/diewo77/ownervalue/internal/slug"
	"github.com/diewo77/ownervalue/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityProspect = "prospect"

// FileStore keeps uploaded documents.
type FileStore interface {
	Save(slug, original string, r io.Reader) (string, error)
	Remove(name string) error
}

// Upload is a document sent along with a prospect.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ProspectInput is the prospect metadata sent by the calculator. Metadata is
// stored verbatim as datiJson.
type ProspectInput struct {
	Slug         string
	Titolo       string
	Indirizzo1   string
	Indirizzo2   string
	PropertySlug string
	Metadata     map[string]any
}

// ParseProspectMetadata reads the metadata JSON object of a save request.
func ParseProspectMetadata(raw []byte) (ProspectInput, error) {
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil || meta == nil {
		return ProspectInput{}, invalid(nil, "invalid metadata")
	}
	return ProspectInput{
		Slug:         text(meta, "slug"),
		Titolo:       text(meta, "titolo"),
		Indirizzo1:   text(meta, "indirizzoRiga1"),
		Indirizzo2:   text(meta, "indirizzoRiga2"),
		PropertySlug: text(meta, models.KeyPropertySlug),
		Metadata:     meta,
	}, nil
}

func text(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprint(v))
	default:
		return ""
	}
}

type ProspectService struct {
	db    *gorm.DB
	files FileStore
	audit audit.Recorder
	log   *slog.Logger
}

func NewProspectService(db *gorm.DB, files FileStore, rec audit.Recorder, log *slog.Logger) *ProspectService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &ProspectService{db: db, files: files, audit: rec, log: log}
}

// Upsert creates or updates the prospect identified by the slug derived from
// Slug, or Indirizzo1 when Slug is blank. A non-empty PropertySlug must name
// an existing property; an empty one detaches the prospect. When up is set
// the document replaces the previous one, which is removed after commit.
func (s *ProspectService) Upsert(ctx context.Context, in ProspectInput, up *Upload) (*models.Prospect, bool, error) {
	key := slug.Slugify(in.Slug)
	if key == "" {
		key = slug.Slugify(in.Indirizzo1)
	}
	if key == "" {
		return nil, false, invalid(validation.Violations{"slug": "required"}, "missing slug or indirizzoRiga1")
	}
	propertyKey := strings.TrimSpace(in.PropertySlug)
	if propertyKey == key {
		return nil, false, conflict("prospect slug %q equals its property slug", key)
	}

	var newFile string
	if up != nil && up.Body != nil {
		name, err := s.files.Save(key, up.Filename, up.Body)
		if err != nil {
			return nil, false, fmt.Errorf("store upload: %w", err)
		}
		newFile = name
	}

	var (
		p       models.Prospect
		created bool
		oldFile string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if owned, err := slugOwnedBy(tx, &models.Property{}, key); err != nil {
			return err
		} else if owned {
			return conflict("slug %q is already used by a property", key)
		}

		var prop *models.Property
		if propertyKey != "" {
			var found models.Property
			err := tx.Where("slug = ?", propertyKey).First(&found).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid(validation.Violations{"propertySlug": "not_found"}, "property %q not found", propertyKey)
			}
			if err != nil {
				return fmt.Errorf("load property: %w", err)
			}
			prop = &found
		}

		err := tx.Where("slug = ?", key).First(&p).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			p = models.Prospect{Slug: key}
		case err != nil:
			return fmt.Errorf("load prospect: %w", err)
		}

		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return invalid(nil, "invalid metadata")
		}
		p.DatiJSON = datatypes.JSON(raw)
		p.Titolo = firstNonEmpty(in.Titolo, in.Indirizzo1, key)
		p.Indirizzo1 = in.Indirizzo1
		p.Indirizzo2 = in.Indirizzo2
		if newFile != "" {
			oldFile = p.PdfPath
			p.PdfPath = newFile
		}
		if err := p.Assign(prop); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return saveError(err, entityProspect, key)
		}
		return nil
	})
	if err != nil {
		if newFile != "" {
			s.removeFile(ctx, newFile)
		}
		return nil, false, err
	}
	if oldFile != "" && oldFile != newFile {
		s.removeFile(ctx, oldFile)
	}

	s.audit.Record(ctx, audit.Entry{Action: audit.ActionUpsert, Entity: entityProspect, Slug: key, Detail: map[string]any{
		"created":      created,
		"propertySlug": propertyKey,
		"pdf":          newFile != "",
	}})
	return &p, created, nil
}

// Assign re-points the prospect at propertyKey, or detaches it when blank.
func (s *ProspectService) Assign(ctx context.Context, key, propertyKey string) (*models.Prospect, error) {
	propertyKey = strings.TrimSpace(propertyKey)
	var p models.Prospect
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slug = ?", key).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("prospect %q not found", key)
		}
		if err != nil {
			return fmt.Errorf("load prospect: %w", err)
		}

		var prop *models.Property
		if propertyKey != "" {
			if propertyKey == p.Slug {
				return conflict("prospect slug %q equals its property slug", key)
			}
			var found models.Property
			err := tx.Where("slug = ?", propertyKey).First(&found).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid(validation.Violations{"propertySlug": "not_found"}, "property %q not found", propertyKey)
			}
			if err != nil {
				return fmt.Errorf("load property: %w", err)
			}
			prop = &found
		}

		if err := p.Assign(prop); err != nil {
			return err
		}
		var propertyID any
		if p.PropertyID != nil {
			propertyID = *p.PropertyID
		}
		if err := tx.Model(&p).Updates(map[string]any{"property_id": propertyID, "dati_json": p.DatiJSON}).Error; err != nil {
			return fmt.Errorf("assign prospect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{Action: audit.ActionAssign, Entity: entityProspect, Slug: key, Detail: map[string]any{"propertySlug": propertyKey}})
	return &p, nil
}

// List returns prospects, most recently updated first, optionally only those
// of one property.
func (s *ProspectService) List(ctx context.Context, propertyKey string) ([]models.Prospect, error) {
	q := s.db.WithContext(ctx).Preload("Property").Order("updated_at desc").Order("id desc")
	if propertyKey = strings.TrimSpace(propertyKey); propertyKey != "" {
		q = q.Where("property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("slug = ?", propertyKey))
	}
	out := []models.Prospect{}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list prospects: %w", err)
	}
	return out, nil
}

// Get returns the prospect with its property.
func (s *ProspectService) Get(ctx context.Context, key string) (*models.Prospect, error) {
	var p models.Prospect
	err := s.db.WithContext(ctx).Preload("Property").Where("slug = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("prospect %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get prospect: %w", err)
	}
	return &p, nil
}

// Delete removes the prospect's document, then the row. A document that
// cannot be removed is logged and does not stop the deletion.
func (s *ProspectService) Delete(ctx context.Context, key string) error {
	var p models.Prospect
	err := s.db.WithContext(ctx).Where("slug = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("prospect %q not found", key)
	}
	if err != nil {
		return fmt.Errorf("load prospect: %w", err)
	}
	if p.HasPDF() {
		s.removeFile(ctx, p.PdfPath)
	}
	if err := s.db.WithContext(ctx).Delete(&p).Error; err != nil {
		return fmt.Errorf("delete prospect: %w", err)
	}
	s.audit.Record(ctx, audit.Entry{Action: audit.ActionDelete, Entity: entityProspect, Slug: key})
	return nil
}

func (s *ProspectService) removeFile(ctx context.Context, name string) {
	if err := s.files.Remove(name); err != nil {
		s.log.WarnContext(ctx, "could not remove stored file", "file", name, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
