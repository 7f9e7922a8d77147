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

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint, withPurchases bool) (*models.User, error) {
	q := r.db.WithContext(ctx)
	if withPurchases {
		q = q.Preload("PurchasedCourses")
	}
	var user models.User
	err := q.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %s not found", email)
	}
	if err != nil {
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, err, "email already registered")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Model: gorm.Model{ID: id}}
		if err := tx.Model(&user).Association("PurchasedCourses").Clear(); err != nil {
			return fmt.Errorf("clear purchases of user %d: %w", id, err)
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user %d not found", id)
		}
		return nil
	})
}

// AddPurchase links a course to the user. Buying the same course twice is
// a no-op.
func (r *UserRepository) AddPurchase(ctx context.Context, userID, courseID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Select("id").First(&course, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("course %d not found", courseID)
			}
			return fmt.Errorf("load course %d: %w", courseID, err)
		}
		var user models.User
		if err := tx.Select("id").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("user %d not found", userID)
			}
			return fmt.Errorf("load user %d: %w", userID, err)
		}
		if err := tx.Model(&user).Association("PurchasedCourses").Append(&course); err != nil {
			return fmt.Errorf("add purchase: %w", err)
		}
		return nil
	})
}

// StartProMembership sets the pro role and extends the membership to until.
func (r *UserRepository) StartProMembership(ctx context.Context, userID uint, until time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"role":                      models.RolePro,
			"pro_membership_expires_at": until,
		})
	if res.Error != nil {
		return fmt.Errorf("start pro membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", userID)
	}
	return nil
}

// ExpireProMemberships demotes pro users whose membership ended at or
// before now and returns how many were demoted.
func (r *UserRepository) ExpireProMemberships(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND (pro_membership_expires_at IS NULL OR pro_membership_expires_at <= ?)", models.RolePro, now).
		Update("role", models.RoleUser)
	if res.Error != nil {
		return 0, fmt.Errorf("expire pro memberships: %w", res.Error)
	}
	return res.RowsAffected, nil
}
