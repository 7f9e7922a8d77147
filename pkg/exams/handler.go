package exams

import (
	"context"
	"net/http"

	"coursehub/pkg/access"
	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/kfka"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/respond"

	"github.com/gorilla/mux"
)

type AccessEvaluator interface {
	HasAccess(ctx context.Context, courseID uint, p access.Principal) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, e kfka.Event) error
}

type Handler struct {
	svc    *Service
	access AccessEvaluator
	events Publisher
}

func NewHandler(svc *Service, access AccessEvaluator, events Publisher) *Handler {
	return &Handler{svc: svc, access: access, events: events}
}

type submitRequest struct {
	Answers []content.UserAnswer `json:"answers" validate:"dive"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
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
	unitID := content.NodeID(mux.Vars(r)["unitID"])

	var req submitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	allowed, err := h.access.HasAccess(r.Context(), courseID, access.Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if !allowed {
		respond.Error(w, r, apperr.Forbidden("no access to course %d", courseID))
		return
	}

	sub, err := h.svc.Submit(r.Context(), user.ID, courseID, unitID, req.Answers)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	event := &kfka.ExamResultEvent{
		UserID:      user.ID,
		Email:       user.Email,
		CourseID:    courseID,
		CourseTitle: sub.CourseTitle,
		UnitID:      string(unitID),
		UnitTitle:   sub.UnitTitle,
		Score:       sub.Result.Score,
		Attempt:     sub.Attempt,
		SubmittedAt: sub.Result.SubmittedAt,
	}
	if err := h.events.Publish(r.Context(), kfka.TopicExamResults, event); err != nil {
		logging.FromContext(r.Context()).Warn("publish exam result", "error", err)
	}
	respond.JSON(w, http.StatusOK, sub.Result)
}
