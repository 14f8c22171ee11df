package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diewo77/ownervalue/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Options struct {
	// DryRun runs the whole restore and rolls it back.
	DryRun bool
	// Truncate wipes both tables before restoring.
	Truncate bool
}

// Summary counts what a restore did, or would do on a dry run.
type Summary struct {
	DryRun            bool     `json:"dryRun"`
	Truncated         bool     `json:"truncated"`
	PropertiesCreated int      `json:"propertiesCreated"`
	PropertiesUpdated int      `json:"propertiesUpdated"`
	ProspectsCreated  int      `json:"prospectsCreated"`
	ProspectsUpdated  int      `json:"prospectsUpdated"`
	Detached          []string `json:"detached"`
	Skipped           []string `json:"skipped"`
}

var errRollback = errors.New("dry run rollback")

// Restore merges doc into db by slug in one transaction. Prospects are linked
// to the first property slug found on the record, its payload, or the
// property that lists it; a slug that names no property detaches the
// prospect. Records whose slug is owned by the other kind are skipped.
func Restore(ctx context.Context, db *gorm.DB, doc Document, opts Options, log *slog.Logger) (Summary, error) {
	sum := Summary{DryRun: opts.DryRun, Truncated: opts.Truncate, Detached: []string{}, Skipped: []string{}}
	listedBy := make(map[string]string)
	for _, p := range doc.Properties {
		for _, pr := range p.Prospects {
			if s := strings.TrimSpace(pr.Slug); s != "" {
				if _, ok := listedBy[s]; !ok {
					listedBy[s] = strings.TrimSpace(p.Slug)
				}
			}
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Truncate {
			if err := tx.Where("1 = 1").Delete(&models.Prospect{}).Error; err != nil {
				return fmt.Errorf("truncate prospects: %w", err)
			}
			if err := tx.Where("1 = 1").Delete(&models.Property{}).Error; err != nil {
				return fmt.Errorf("truncate properties: %w", err)
			}
		}

		for _, item := range doc.Properties {
			key := strings.TrimSpace(item.Slug)
			if key == "" {
				continue
			}
			if taken, err := exists(tx, &models.Prospect{}, key); err != nil {
				return err
			} else if taken {
				log.WarnContext(ctx, "property slug used by a prospect, skipped", "slug", key)
				sum.Skipped = append(sum.Skipped, "property:"+key)
				continue
			}
			created, err := restoreProperty(tx, key, item)
			if err != nil {
				return err
			}
			if created {
				sum.PropertiesCreated++
			} else {
				sum.PropertiesUpdated++
			}
		}

		for _, item := range doc.Prospects {
			key := strings.TrimSpace(item.Slug)
			if key == "" {
				continue
			}
			if taken, err := exists(tx, &models.Property{}, key); err != nil {
				return err
			} else if taken {
				log.WarnContext(ctx, "prospect slug used by a property, skipped", "slug", key)
				sum.Skipped = append(sum.Skipped, "prospect:"+key)
				continue
			}

			propertyKey := linkedSlug(item, listedBy[key])
			var prop *models.Property
			if propertyKey != "" {
				var found models.Property
				err := tx.Where("slug = ?", propertyKey).First(&found).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					log.WarnContext(ctx, "prospect references an unknown property, detached", "slug", key, "property", propertyKey)
					sum.Detached = append(sum.Detached, key)
				case err != nil:
					return fmt.Errorf("load property %s: %w", propertyKey, err)
				default:
					prop = &found
				}
			}

			created, err := restoreProspect(tx, key, item, prop)
			if err != nil {
				return err
			}
			if created {
				sum.ProspectsCreated++
			} else {
				sum.ProspectsUpdated++
			}
		}

		if opts.DryRun {
			return errRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errRollback) {
		return Summary{}, fmt.Errorf("backup: restore: %w", err)
	}
	return sum, nil
}

func restoreProperty(tx *gorm.DB, key string, item PropertyRecord) (bool, error) {
	var p models.Property
	err := tx.Where("slug = ?", key).First(&p).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, fmt.Errorf("load property %s: %w", key, err)
	}
	if created {
		p = models.Property{Slug: key, CreatedAt: item.CreatedAt}
	}
	p.Nome, p.Indirizzo, p.Citta = item.Nome, item.Indirizzo, item.Citta
	p.OwnerNome, p.OwnerEmail, p.OwnerTelefono = item.OwnerNome, item.OwnerEmail, item.OwnerTelefono
	p.Note = item.Note
	if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
		return false, fmt.Errorf("save property %s: %w", key, err)
	}
	return created, nil
}

func restoreProspect(tx *gorm.DB, key string, item ProspectRecord, prop *models.Property) (bool, error) {
	var p models.Prospect
	err := tx.Where("slug = ?", key).First(&p).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, fmt.Errorf("load prospect %s: %w", key, err)
	}
	if created {
		p = models.Prospect{Slug: key, CreatedAt: item.CreatedAt}
	}
	p.Titolo = firstNonEmpty(item.Titolo, item.Indirizzo1, key)
	p.Indirizzo1, p.Indirizzo2 = item.Indirizzo1, item.Indirizzo2
	p.PdfPath = item.PdfPath
	p.DatiJSON = item.dati()
	if len(p.DatiJSON) == 0 {
		p.DatiJSON = datatypes.JSON("{}")
	}
	if err := p.Assign(prop); err != nil {
		return false, fmt.Errorf("rewrite prospect %s: %w", key, err)
	}
	if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
		return false, fmt.Errorf("save prospect %s: %w", key, err)
	}
	return created, nil
}

func linkedSlug(item ProspectRecord, listedBy string) string {
	var fromProperty string
	if item.Property != nil {
		fromProperty = item.Property.Slug
	}
	return firstNonEmpty(strings.TrimSpace(fromProperty), strings.TrimSpace(item.PropertySlug), item.datiSlug(), listedBy)
}

func exists(tx *gorm.DB, model any, key string) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("slug = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug %s: %w", key, err)
	}
	return n > 0, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
