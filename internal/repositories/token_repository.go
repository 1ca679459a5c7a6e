package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"crisp/internal/models"
)

var ErrTokenNotFound = errors.New("interview token not found")

type TokenRepository struct {
	DB *gorm.DB
}

func (r *TokenRepository) Create(ctx context.Context, token *models.InterviewToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

func (r *TokenRepository) GetByToken(ctx context.Context, tokenStr string) (*models.InterviewToken, error) {
	var t models.InterviewToken
	err := r.DB.WithContext(ctx).Where("token = ?", tokenStr).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByEmail returns the newest token issued to email, used or not.
func (r *TokenRepository) GetByEmail(ctx context.Context, email string) (*models.InterviewToken, error) {
	var t models.InterviewToken
	err := r.DB.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Invalidate marks a token as used. Invalidating an already used token is a no-op.
func (r *TokenRepository) Invalidate(ctx context.Context, tokenStr string, at time.Time) error {
	tx := r.DB.WithContext(ctx).
		Model(&models.InterviewToken{}).
		Where("token = ? AND is_valid = ?", tokenStr, true).
		Updates(map[string]any{"is_valid": false, "used_at": at})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		var count int64
		if err := r.DB.WithContext(ctx).Model(&models.InterviewToken{}).Where("token = ?", tokenStr).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTokenNotFound
		}
	}
	return nil
}

// List returns tokens newest first; a nil domain lists every token.
func (r *TokenRepository) List(ctx context.Context, companyDomain *string) ([]models.InterviewToken, error) {
	q := r.DB.WithContext(ctx).Order("created_at DESC")
	if companyDomain != nil {
		q = q.Where("company_domain = ?", *companyDomain)
	}
	var out []models.InterviewToken
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
