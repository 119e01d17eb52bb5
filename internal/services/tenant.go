package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound     = response.NewNotFound("tenant not found")
	ErrTenantSlugExists   = response.NewConflict("tenant slug already exists")
	ErrInvalidTranslators = response.NewBadRequest("translators must be Disabled, Admin or Client")
)

type TenantService struct {
	db    *gorm.DB
	blobs BlobStore
}

func NewTenantService(db *gorm.DB, blobs BlobStore) *TenantService {
	return &TenantService{db: db, blobs: blobs}
}

type CreateTenantRequest struct {
	Name        string   `json:"name" binding:"required,max=200"`
	Slug        string   `json:"slug" binding:"required,max=100"`
	Code        string   `json:"code" binding:"max=20"`
	Departments []string `json:"departments"`
	Export      bool     `json:"export"`
	Translators string   `json:"translators"`
}

type UpdateTenantRequest struct {
	Name        string   `json:"name" binding:"max=200"`
	Code        *string  `json:"code"`
	Departments []string `json:"departments"`
	Export      *bool    `json:"export"`
	Translators string   `json:"translators"`
}

// List returns every tenant for admins and only the caller's own tenant
// otherwise.
func (s *TenantService) List(ctx context.Context, caller Caller) ([]models.Tenant, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if !caller.IsAdmin() {
		q = q.Where("slug = ?", caller.Tenant)
	}
	var tenants []models.Tenant
	if err := q.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindBySlug returns nil without error when no tenant uses slug.
func (s *TenantService) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if slug == "" {
		return nil, nil
	}
	var t models.Tenant
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TenantService) Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	translators, err := normalizeTranslators(req.Translators)
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(req.Slug)
	existing, err := s.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTenantSlugExists
	}

	t := &models.Tenant{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Code:        req.Code,
		Departments: cleanDepartments(req.Departments),
		Export:      req.Export,
		Translators: translators,
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TenantService) Update(ctx context.Context, id string, req *UpdateTenantRequest) (*models.Tenant, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Code != nil {
		updates["code"] = *req.Code
	}
	if req.Departments != nil {
		t.Departments = cleanDepartments(req.Departments)
	}
	if req.Export != nil {
		updates["export"] = *req.Export
	}
	if req.Translators != "" {
		translators, err := normalizeTranslators(req.Translators)
		if err != nil {
			return nil, err
		}
		updates["translators"] = translators
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(t).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Departments != nil {
			// serialized column, written through the struct so the json serializer runs
			if err := tx.Model(t).Select("departments").Updates(&models.Tenant{Departments: t.Departments}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *TenantService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Tenant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// UploadLogo stores a tenant logo and records its path on the tenant.
func (s *TenantService) UploadLogo(ctx context.Context, id, fileName string, r io.Reader, size int64, contentType string) (*models.Tenant, error) {
	if s.blobs == nil {
		return nil, ErrStorageDisabled
	}
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	objectPath := LogoObjectPath(fileName)
	if err := s.blobs.Put(ctx, objectPath, r, size, contentType); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(t).Update("image", objectPath).Error; err != nil {
		return nil, fmt.Errorf("record tenant logo: %w", err)
	}
	t.Image = objectPath
	return t, nil
}

func normalizeTranslators(v string) (string, error) {
	switch v {
	case "":
		return models.TranslatorsDisabled, nil
	case models.TranslatorsDisabled, models.TranslatorsAdmin, models.TranslatorsClient:
		return v, nil
	}
	return "", ErrInvalidTranslators
}

func cleanDepartments(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
