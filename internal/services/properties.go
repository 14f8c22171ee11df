package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diewo77/ownervalue/internal/audit"
	"github.com/diewo77/ownervalue/internal/models"
	"github.com/diewo77/ownervalue/internal/slug"
	"github.com/diewo77/ownervalue/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityProperty = "property"

// PropertyInput is the writable part of a property.
type PropertyInput struct {
	Slug          string `json:"slug"`
	Nome          string `json:"nome"`
	Indirizzo     string `json:"indirizzo"`
	Citta         string `json:"citta"`
	OwnerNome     string `json:"ownerNome"`
	OwnerEmail    string `json:"ownerEmail"`
	OwnerTelefono string `json:"ownerTelefono"`
	Note          string `json:"note"`
}

func (in *PropertyInput) trim() {
	for _, f := range []*string{&in.Slug, &in.Nome, &in.Indirizzo, &in.Citta, &in.OwnerNome, &in.OwnerEmail, &in.OwnerTelefono, &in.Note} {
		*f = strings.TrimSpace(*f)
	}
}

// PropertySummary is a list row.
type PropertySummary struct {
	models.Property
	Count ProspectCount `json:"_count"`
}

type ProspectCount struct {
	Prospects int64 `json:"prospects"`
}

type PropertyService struct {
	db    *gorm.DB
	audit audit.Recorder
	log   *slog.Logger
}

func NewPropertyService(db *gorm.DB, rec audit.Recorder, log *slog.Logger) *PropertyService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &PropertyService{db: db, audit: rec, log: log}
}

// Upsert creates the property or updates every field of the existing one.
// The slug is derived from Slug, or Nome when Slug is blank, and never
// changes afterwards.
func (s *PropertyService) Upsert(ctx context.Context, in PropertyInput) (*models.Property, bool, error) {
	in.trim()
	key := slug.Slugify(in.Slug)
	if key == "" {
		key = slug.Slugify(in.Nome)
	}
	v := validation.Violations{}
	if key == "" {
		v["slug"] = "required"
	}
	validation.Email("ownerEmail", in.OwnerEmail, v)
	validation.MaxLen("nome", in.Nome, 191, v)
	if !v.Empty() {
		return nil, false, invalid(v, "invalid property")
	}

	var p models.Property
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if owned, err := slugOwnedBy(tx, &models.Prospect{}, key); err != nil {
			return err
		} else if owned {
			return conflict("slug %q is already used by a prospect", key)
		}

		err := tx.Where("slug = ?", key).First(&p).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			p = models.Property{Slug: key}
		case err != nil:
			return fmt.Errorf("load property: %w", err)
		}

		p.Nome = in.Nome
		if p.Nome == "" {
			p.Nome = key
		}
		p.Indirizzo, p.Citta = in.Indirizzo, in.Citta
		p.OwnerNome, p.OwnerEmail, p.OwnerTelefono = in.OwnerNome, in.OwnerEmail, in.OwnerTelefono
		p.Note = in.Note
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return saveError(err, entityProperty, key)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.audit.Record(ctx, audit.Entry{Action: audit.ActionUpsert, Entity: entityProperty, Slug: key, Detail: map[string]any{"created": created}})
	return &p, created, nil
}

// List returns every property ordered by name with its prospect count.
func (s *PropertyService) List(ctx context.Context) ([]PropertySummary, error) {
	var props []models.Property
	if err := s.db.WithContext(ctx).Order("nome asc").Order("id asc").Find(&props).Error; err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	var counts []struct {
		PropertyID uint
		N          int64
	}
	err := s.db.WithContext(ctx).Model(&models.Prospect{}).
		Select("property_id, COUNT(*) AS n").
		Where("property_id IS NOT NULL").
		Group("property_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count prospects: %w", err)
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.PropertyID] = c.N
	}

	out := make([]PropertySummary, 0, len(props))
	for _, p := range props {
		out = append(out, PropertySummary{Property: p, Count: ProspectCount{Prospects: byID[p.ID]}})
	}
	return out, nil
}

// Get returns the property with its prospects, most recently updated first.
func (s *PropertyService) Get(ctx context.Context, key string) (*models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).
		Preload("Prospects", func(db *gorm.DB) *gorm.DB {
			return db.Order("updated_at desc").Order("id desc")
		}).
		Where("slug = ?", key).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("property %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	return &p, nil
}

// Delete detaches every prospect of the property, clearing their
// denormalized property copies, then deletes it. It returns the number of
// prospects detached.
func (s *PropertyService) Delete(ctx context.Context, key string) (int, error) {
	detached := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Property
		err := tx.Where("slug = ?", key).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("property %q not found", key)
		}
		if err != nil {
			return fmt.Errorf("load property: %w", err)
		}

		var attached []models.Prospect
		if err := tx.Where("property_id = ?", p.ID).Find(&attached).Error; err != nil {
			return fmt.Errorf("load prospects: %w", err)
		}
		for i := range attached {
			pr := &attached[i]
			if err := pr.Assign(nil); err != nil {
				return err
			}
			if err := tx.Model(pr).Updates(map[string]any{"property_id": nil, "dati_json": pr.DatiJSON}).Error; err != nil {
				return fmt.Errorf("detach prospect %s: %w", pr.Slug, err)
			}
		}
		detached = len(attached)

		if err := tx.Delete(&p).Error; err != nil {
			return fmt.Errorf("delete property: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "property deleted", "slug", key, "detached_prospects", detached)
	s.audit.Record(ctx, audit.Entry{Action: audit.ActionDelete, Entity: entityProperty, Slug: key, Detail: map[string]any{"detachedProspects": detached}})
	return detached, nil
}

// slugOwnedBy reports whether a row of model's table already uses key.
func slugOwnedBy(tx *gorm.DB, model any, key string) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("slug = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}
