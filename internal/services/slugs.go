package services

import (
	"context"
	"fmt"

	"github.com/diewo77/ownervalue/internal/models"
	"github.com/diewo77/ownervalue/internal/slug"
	"gorm.io/gorm"
)

// Suggestion is a resolved identifier for a candidate text.
type Suggestion struct {
	Slug     string `json:"slug"`
	Adjusted bool   `json:"adjusted"`
}

// SlugService resolves identifiers against both record kinds.
type SlugService struct {
	db       *gorm.DB
	resolver slug.Resolver
}

func NewSlugService(db *gorm.DB) *SlugService {
	return &SlugService{db: db}
}

// Taken loads every slug in use by properties and prospects.
func (s *SlugService) Taken(ctx context.Context) (slug.Taken, error) {
	var props, prospects []string
	if err := s.db.WithContext(ctx).Model(&models.Property{}).Pluck("slug", &props).Error; err != nil {
		return nil, fmt.Errorf("load property slugs: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Prospect{}).Pluck("slug", &prospects).Error; err != nil {
		return nil, fmt.Errorf("load prospect slugs: %w", err)
	}
	return slug.NewTaken(props, prospects), nil
}

// Suggest returns a free slug for candidate. current is the slug the entity
// already owns and is never reported as a collision.
func (s *SlugService) Suggest(ctx context.Context, candidate, current string) (Suggestion, error) {
	base := slug.Slugify(candidate)
	if base == "" {
		return Suggestion{}, invalid(nil, "missing candidate")
	}
	taken, err := s.Taken(ctx)
	if err != nil {
		return Suggestion{}, err
	}
	got := s.resolver.Resolve(base, taken, current)
	return Suggestion{Slug: got, Adjusted: got != base}, nil
}
