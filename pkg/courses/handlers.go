package courses

import (
	"context"
	"net/http"

	"coursehub/pkg/access"
	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/respond"
	"coursehub/pkg/search"

	"github.com/gorilla/mux"
)

type Indexer interface {
	IndexCourse(ctx context.Context, doc *content.CourseDocument) error
	DeleteCourse(ctx context.Context, id uint) error
	SearchCourses(ctx context.Context, q string) ([]search.CourseHit, error)
}

type StatusUpdater interface {
	UpdateCourseStatus(ctx context.Context, userID, courseID uint, status content.ProgressStatus) (content.ProgressStatus, error)
	UpdateUnitStatus(ctx context.Context, userID, courseID uint, unitID content.NodeID, status content.ProgressStatus) (*content.ProgressNode, error)
}

type Handler struct {
	svc      *Service
	progress StatusUpdater
	index    Indexer
}

func NewHandler(svc *Service, progress StatusUpdater, index Indexer) *Handler {
	return &Handler{svc: svc, progress: progress, index: index}
}

type statusRequest struct {
	Status content.ProgressStatus `json:"status" validate:"required"`
}

// List returns the public summary of every course.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.courses.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	out := make([]search.CourseHit, 0, len(docs))
	for _, doc := range docs {
		hit := search.CourseSummary(doc)
		if hit.Price == 0 {
			hit.Price = h.svc.defaultPrice
		}
		out = append(out, hit)
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.index.SearchCourses(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, hits)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	details, err := h.svc.GetCourseWithProgress(r.Context(), p, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, details)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var doc content.CourseDocument
	if err := respond.Decode(r, &doc); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := content.Validate(&doc); err != nil {
		respond.Error(w, r, apperr.Wrap(apperr.KindBadRequest, err, "invalid course"))
		return
	}
	if err := h.svc.courses.Create(r.Context(), &doc); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.reindex(r.Context(), &doc)
	respond.JSON(w, http.StatusCreated, &doc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var doc content.CourseDocument
	if err := respond.Decode(r, &doc); err != nil {
		respond.Error(w, r, err)
		return
	}
	doc.ID = id
	doc.Status = nil
	if err := content.Validate(&doc); err != nil {
		respond.Error(w, r, apperr.Wrap(apperr.KindBadRequest, err, "invalid course"))
		return
	}
	if err := h.svc.courses.Update(r.Context(), &doc); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.reindex(r.Context(), &doc)
	respond.JSON(w, http.StatusOK, &doc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.svc.courses.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.index.DeleteCourse(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("remove course from index", "course_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateCourseStatus(w http.ResponseWriter, r *http.Request) {
	p, courseID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	status, err := h.progress.UpdateCourseStatus(r.Context(), p.UserID, courseID, req.Status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, statusRequest{Status: status})
}

func (h *Handler) UpdateUnitStatus(w http.ResponseWriter, r *http.Request) {
	p, courseID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	unitID := content.NodeID(mux.Vars(r)["unitID"])
	var req statusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	node, err := h.progress.UpdateUnitStatus(r.Context(), p.UserID, courseID, unitID, req.Status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, node)
}

// authorize resolves the caller and the {id} course and checks the caller
// may work on it.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (access.Principal, uint, bool) {
	p, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return p, 0, false
	}
	courseID, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return p, 0, false
	}
	if _, err := h.svc.courses.FindByID(r.Context(), courseID); err != nil {
		respond.Error(w, r, err)
		return p, 0, false
	}
	allowed, err := h.svc.access.HasAccess(r.Context(), courseID, p)
	if err != nil {
		respond.Error(w, r, err)
		return p, 0, false
	}
	if !allowed {
		respond.Error(w, r, apperr.Forbidden("no access to course %d", courseID))
		return p, 0, false
	}
	return p, courseID, true
}

func (h *Handler) reindex(ctx context.Context, doc *content.CourseDocument) {
	if err := h.index.IndexCourse(ctx, doc); err != nil {
		logging.FromContext(ctx).Warn("index course", "course_id", doc.ID, "error", err)
	}
}
