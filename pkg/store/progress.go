package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/models"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Find(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("progress for user %d course %d not found", userID, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return &rec, nil
}

// Create relies on the unique (user_id, course_id) index; a duplicate is
// reported as a conflict so the caller can reload the winner.
func (r *ProgressRepository) Create(ctx context.Context, rec *models.ProgressRecord) error {
	rec.Version = 0
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, err, "progress for user %d course %d already exists", rec.UserID, rec.CourseID)
	}
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

// Save is a compare-and-swap on the version column.
func (r *ProgressRepository) Save(ctx context.Context, rec *models.ProgressRecord) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.ProgressRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]any{
			"payload":    rec.Payload,
			"version":    rec.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("save progress %d: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("progress %d was modified concurrently", rec.ID)
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (r *ProgressRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ProgressRecord{}).Error; err != nil {
		return fmt.Errorf("delete progress of user %d: %w", userID, err)
	}
	return nil
}
