package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"crisp/internal/models"
)

// OutboxRepository keeps candidate writes that failed to reach the document
// store until a retry succeeds.
type OutboxRepository struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (r *OutboxRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Record stores the latest payload for candidateID and bumps its attempt count.
func (r *OutboxRepository) Record(ctx context.Context, candidateID string, payload []byte, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxEntry
		err := tx.Where("candidate_id = ?", candidateID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.OutboxEntry{
				CandidateID: candidateID,
				Payload:     payload,
				Attempts:    1,
				LastError:   msg,
				UpdatedAt:   r.now(),
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&entry).Updates(map[string]any{
			"payload":    payload,
			"attempts":   entry.Attempts + 1,
			"last_error": msg,
			"updated_at": r.now(),
		}).Error
	})
}

func (r *OutboxRepository) Resolve(ctx context.Context, candidateID string) error {
	return r.DB.WithContext(ctx).Where("candidate_id = ?", candidateID).Delete(&models.OutboxEntry{}).Error
}

// Due lists entries still under maxAttempts, oldest first.
func (r *OutboxRepository) Due(ctx context.Context, maxAttempts, limit int) ([]models.OutboxEntry, error) {
	q := r.DB.WithContext(ctx).Where("attempts < ?", maxAttempts).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.OutboxEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountStuck counts entries that have used up their attempts.
func (r *OutboxRepository) CountStuck(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.OutboxEntry{}).Where("attempts >= ?", maxAttempts).Count(&count).Error
	return count, err
}
