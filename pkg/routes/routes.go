package routes

import (
	"net/http"

	"coursehub/pkg/articles"
	"coursehub/pkg/courses"
	"coursehub/pkg/exams"
	"coursehub/pkg/goauth"
	"coursehub/pkg/media"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/purchases"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Auth      *goauth.Handler
	Courses   *courses.Handler
	Exams     *exams.Handler
	Purchases *purchases.Handler
	Articles  *articles.Handler
	Media     *media.Handler
}

// New builds the API router. Public routes are registered before the
// authenticated subrouters so that fixed paths win over {id} patterns.
func New(h Handlers, auth *middleware.Auth) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	SetupAuth(api.PathPrefix("/auth").Subrouter(), h.Auth)
	SetupPublic(api, h)

	user := api.NewRoute().Subrouter()
	user.Use(auth.Middleware)
	SetupMe(user.PathPrefix("/me").Subrouter(), h.Auth)
	SetupLearning(user, h)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware, middleware.RequireRole(models.RoleAdmin))
	SetupAdmin(admin, h)
	return r
}

func SetupAuth(r *mux.Router, h *goauth.Handler) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/verify", h.Verify).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
}

func SetupMe(r *mux.Router, h *goauth.Handler) {
	r.HandleFunc("", h.Me).Methods(http.MethodGet)
	r.HandleFunc("", h.DeleteMe).Methods(http.MethodDelete)
}

func SetupPublic(r *mux.Router, h Handlers) {
	r.HandleFunc("/courses", h.Courses.List).Methods(http.MethodGet)
	r.HandleFunc("/courses/search", h.Courses.Search).Methods(http.MethodGet)
	r.HandleFunc("/articles", h.Articles.List).Methods(http.MethodGet)
	r.HandleFunc("/articles/search", h.Articles.Search).Methods(http.MethodGet)
	r.HandleFunc("/articles/{slug}", h.Articles.Get).Methods(http.MethodGet)
}

func SetupLearning(r *mux.Router, h Handlers) {
	r.HandleFunc("/courses/{id:[0-9]+}", h.Courses.Get).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id:[0-9]+}/status", h.Courses.UpdateCourseStatus).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id:[0-9]+}/units/{unitID}/status", h.Courses.UpdateUnitStatus).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id:[0-9]+}/units/{unitID}/exam", h.Exams.Submit).Methods(http.MethodPost)
	r.HandleFunc("/courses/{id:[0-9]+}/purchase", h.Purchases.BuyCourse).Methods(http.MethodPost)
	r.HandleFunc("/membership/pro", h.Purchases.BuyProMembership).Methods(http.MethodPost)
}

func SetupAdmin(r *mux.Router, h Handlers) {
	r.HandleFunc("/courses", h.Courses.Create).Methods(http.MethodPost)
	r.HandleFunc("/courses/{id:[0-9]+}", h.Courses.Update).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id:[0-9]+}", h.Courses.Delete).Methods(http.MethodDelete)

	r.HandleFunc("/articles", h.Articles.List).Methods(http.MethodGet)
	r.HandleFunc("/articles", h.Articles.Create).Methods(http.MethodPost)
	r.HandleFunc("/articles/{id:[0-9]+}", h.Articles.Update).Methods(http.MethodPut)
	r.HandleFunc("/articles/{id:[0-9]+}", h.Articles.Delete).Methods(http.MethodDelete)

	r.HandleFunc("/media", h.Media.Upload).Methods(http.MethodPost)
	r.HandleFunc("/media/{id:[0-9]+}", h.Media.Get).Methods(http.MethodGet)
	r.HandleFunc("/media/{id:[0-9]+}", h.Media.Delete).Methods(http.MethodDelete)
}
