package purchases

import (
	"context"
	"net/http"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/kfka"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/respond"
)

type UserRepository interface {
	AddPurchase(ctx context.Context, userID, courseID uint) error
	StartProMembership(ctx context.Context, userID uint, until time.Time) error
}

type CourseFinder interface {
	FindByID(ctx context.Context, id uint) (*content.CourseDocument, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, e kfka.Event) error
}

// Handler records purchases without talking to a payment provider.
type Handler struct {
	users   UserRepository
	courses CourseFinder
	events  Publisher
	period  time.Duration
	now     func() time.Time
}

func NewHandler(users UserRepository, courses CourseFinder, events Publisher, proPeriod time.Duration) *Handler {
	return &Handler{users: users, courses: courses, events: events, period: proPeriod, now: time.Now}
}

type courseResponse struct {
	CourseID uint `json:"course_id"`
	Owned    bool `json:"owned"`
}

type membershipResponse struct {
	Role                   models.Role `json:"role"`
	ProMembershipExpiresAt time.Time   `json:"pro_membership_expires_at"`
}

func (h *Handler) BuyCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	courseID, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	course, err := h.courses.FindByID(r.Context(), courseID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.users.AddPurchase(r.Context(), user.ID, courseID); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.publish(r.Context(), &kfka.PurchaseEvent{
		UserID:      user.ID,
		Email:       user.Email,
		Kind:        kfka.PurchaseCourse,
		CourseID:    courseID,
		CourseTitle: course.Title,
	})
	respond.JSON(w, http.StatusOK, courseResponse{CourseID: courseID, Owned: true})
}

func (h *Handler) BuyProMembership(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	if user.Role == models.RoleAdmin {
		respond.Error(w, r, apperr.BadRequest("admins already have full access"))
		return
	}
	until := h.now().Add(h.period)
	if err := h.users.StartProMembership(r.Context(), user.ID, until); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.publish(r.Context(), &kfka.PurchaseEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Kind:     kfka.PurchasePro,
		ProUntil: &until,
	})
	respond.JSON(w, http.StatusOK, membershipResponse{Role: models.RolePro, ProMembershipExpiresAt: until})
}

func (h *Handler) publish(ctx context.Context, e *kfka.PurchaseEvent) {
	if err := h.events.Publish(ctx, kfka.TopicCoursePurchases, e); err != nil {
		logging.FromContext(ctx).Warn("publish purchase", "kind", e.Kind, "error", err)
	}
}
