package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crisp/internal/models"
)

var ErrInterviewerNotFound = errors.New("interviewer not found")

type InterviewerRepository struct {
	DB *gorm.DB
}

func (r *InterviewerRepository) Create(ctx context.Context, i *models.Interviewer) error {
	return r.DB.WithContext(ctx).Create(i).Error
}

func (r *InterviewerRepository) GetByEmail(ctx context.Context, email string) (*models.Interviewer, error) {
	var i models.Interviewer
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&i).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}
