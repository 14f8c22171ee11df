package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/ownervalue/internal/models"
	"github.com/diewo77/ownervalue/internal/slug"
	"github.com/diewo77/ownervalue/validation"
	"gorm.io/gorm"
)

// LinkInput is the writable part of a short link.
type LinkInput struct {
	Code   string `json:"code"`
	Target string `json:"target"`
	Note   string `json:"note"`
}

type LinkService struct {
	db *gorm.DB
}

func NewLinkService(db *gorm.DB) *LinkService {
	return &LinkService{db: db}
}

// Upsert creates or retargets the link with the given code.
func (s *LinkService) Upsert(ctx context.Context, in LinkInput) (*models.ShortLink, error) {
	code := slug.Slugify(in.Code)
	target := strings.TrimSpace(in.Target)
	v := validation.Violations{}
	if code == "" {
		v["code"] = "required"
	}
	validation.Required("target", target, v)
	if _, missing := v["target"]; !missing {
		validation.RedirectTarget("target", target, v)
	}
	validation.MaxLen("target", target, 2048, v)
	if !v.Empty() {
		return nil, invalid(v, "invalid link")
	}

	var l models.ShortLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("code = ?", code).First(&l).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l = models.ShortLink{Code: code}
		} else if err != nil {
			return fmt.Errorf("load link: %w", err)
		}
		l.Target = target
		l.Note = strings.TrimSpace(in.Note)
		return tx.Save(&l).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Resolve returns the link for code and counts the hit.
func (s *LinkService) Resolve(ctx context.Context, code string) (*models.ShortLink, error) {
	var l models.ShortLink
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("link %q not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&l).UpdateColumn("hits", gorm.Expr("hits + ?", 1)).Error; err != nil {
		return nil, fmt.Errorf("count hit: %w", err)
	}
	l.Hits++
	return &l, nil
}

func (s *LinkService) List(ctx context.Context) ([]models.ShortLink, error) {
	out := []models.ShortLink{}
	if err := s.db.WithContext(ctx).Order("code asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

func (s *LinkService) Delete(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.ShortLink{})
	if res.Error != nil {
		return fmt.Errorf("delete link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("link %q not found", code)
	}
	return nil
}
