package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crisp/internal/models"
)

var (
	ErrDomainNotFound = errors.New("domain not found")
	ErrDomainExists   = errors.New("domain already allowed")
)

// DomainRepository stores the email domains allowed to use the dashboard.
type DomainRepository struct {
	DB *gorm.DB
}

func (r *DomainRepository) List(ctx context.Context) ([]models.AllowedDomain, error) {
	var out []models.AllowedDomain
	if err := r.DB.WithContext(ctx).Order("domain ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DomainRepository) IsAllowed(ctx context.Context, domain string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.AllowedDomain{}).Where("domain = ?", domain).Count(&count).Error
	return count > 0, err
}

func (r *DomainRepository) Create(ctx context.Context, domain string) (*models.AllowedDomain, error) {
	allowed, err := r.IsAllowed(ctx, domain)
	if err != nil {
		return nil, err
	}
	if allowed {
		return nil, ErrDomainExists
	}
	d := &models.AllowedDomain{Domain: domain}
	if err := r.DB.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DomainRepository) Delete(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Unscoped().Delete(&models.AllowedDomain{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDomainNotFound
	}
	return nil
}
