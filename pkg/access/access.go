package access

import (
	"context"
	"errors"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/models"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint, withPurchases bool) (*models.User, error)
}

// Principal is the caller a decision is made for.
type Principal struct {
	UserID uint
	Role   models.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type Evaluator struct {
	users UserRepository
	now   func() time.Time
}

func NewEvaluator(users UserRepository) *Evaluator {
	return &Evaluator{users: users, now: time.Now}
}

// HasAccess reports whether p may see the full content of a course. Admins
// always may; everyone else needs an active pro membership or a purchase.
// The user row is re-read on every call.
func (e *Evaluator) HasAccess(ctx context.Context, courseID uint, p Principal) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}
	user, err := e.users.FindByID(ctx, p.UserID, true)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if user.Role == models.RolePro && user.ProActive(e.now()) {
		return true, nil
	}
	return user.HasPurchased(courseID), nil
}
