package articles

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"coursehub/pkg/apperr"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/respond"
	"coursehub/pkg/search"

	"github.com/gorilla/mux"
)

type Repository interface {
	List(ctx context.Context, withDrafts bool) ([]models.Article, error)
	FindBySlug(ctx context.Context, slug string, withDrafts bool) (*models.Article, error)
	FindByID(ctx context.Context, id uint) (*models.Article, error)
	Create(ctx context.Context, a *models.Article) error
	Save(ctx context.Context, a *models.Article) error
	Delete(ctx context.Context, id uint) error
}

type Indexer interface {
	IndexArticle(ctx context.Context, a *models.Article) error
	DeleteArticle(ctx context.Context, id uint) error
	SearchArticles(ctx context.Context, q string) ([]search.ArticleHit, error)
}

type Handler struct {
	repo  Repository
	index Indexer
}

func NewHandler(repo Repository, index Indexer) *Handler {
	return &Handler{repo: repo, index: index}
}

type articleRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200"`
	Summary   string `json:"summary" validate:"max=500"`
	Body      string `json:"body"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	Published bool   `json:"published"`
}

type articleResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Summary   string    `json:"summary"`
	Body      string    `json:"body,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newArticleResponse(a *models.Article, withBody bool) articleResponse {
	resp := articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Slug:      a.Slug,
		Summary:   a.Summary,
		ImageURL:  a.ImageURL,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if withBody {
		resp.Body = a.Body
	}
	return resp
}

// Slugify lowercases title and joins its letter and digit runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func isAdmin(r *http.Request) bool {
	user, ok := middleware.GetUserFromContext(r)
	return ok && user.Role == models.RoleAdmin
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context(), isAdmin(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	out := make([]articleResponse, 0, len(list))
	for i := range list {
		out = append(out, newArticleResponse(&list[i], false))
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.FindBySlug(r.Context(), mux.Vars(r)["slug"], isAdmin(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newArticleResponse(a, true))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.index.SearchArticles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, hits)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	var req articleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	a := &models.Article{AuthorID: user.ID}
	if !apply(w, r, a, req) {
		return
	}
	if err := h.repo.Create(r.Context(), a); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.sync(r.Context(), a)
	respond.JSON(w, http.StatusCreated, newArticleResponse(a, true))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req articleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if !apply(w, r, a, req) {
		return
	}
	if err := h.repo.Save(r.Context(), a); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.sync(r.Context(), a)
	respond.JSON(w, http.StatusOK, newArticleResponse(a, true))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.index.DeleteArticle(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("remove article from index", "article_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func apply(w http.ResponseWriter, r *http.Request, a *models.Article, req articleRequest) bool {
	slug := req.Slug
	if slug == "" {
		slug = req.Title
	}
	slug = Slugify(slug)
	if slug == "" {
		respond.Error(w, r, apperr.BadRequest("title gives an empty slug"))
		return false
	}
	a.Title = req.Title
	a.Slug = slug
	a.Summary = req.Summary
	a.Body = req.Body
	a.ImageURL = req.ImageURL
	a.Published = req.Published
	return true
}

// sync keeps only published articles searchable.
func (h *Handler) sync(ctx context.Context, a *models.Article) {
	var err error
	if a.Published {
		err = h.index.IndexArticle(ctx, a)
	} else {
		err = h.index.DeleteArticle(ctx, a.ID)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("sync article index", "article_id", a.ID, "error", err)
	}
}
