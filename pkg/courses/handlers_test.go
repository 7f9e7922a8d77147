package courses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"coursehub/pkg/content"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/search"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) IndexCourse(ctx context.Context, doc *content.CourseDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockIndexer) DeleteCourse(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockIndexer) SearchCourses(ctx context.Context, q string) ([]search.CourseHit, error) {
	args := m.Called(ctx, q)
	hits, _ := args.Get(0).([]search.CourseHit)
	return hits, args.Error(1)
}

func router(h *Handler, user *models.User) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(middleware.WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/courses", h.List).Methods(http.MethodGet)
	r.HandleFunc("/courses", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/courses/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/courses/{id}/status", h.UpdateCourseStatus).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id}/units/{unitID}/status", h.UpdateUnitStatus).Methods(http.MethodPut)
	return r
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestGetCourseHandler(t *testing.T) {
	f := newFixture(t, paidCourse())
	user := &models.User{Role: models.RoleUser}
	f.user(t, user)
	r := router(NewHandler(f.svc, f.progress, new(mockIndexer)), user)

	rec := serve(r, http.MethodGet, "/courses/"+uintStr(f.courseID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["has_access"])
	assert.Equal(t, 49.0, body["price"])
	assert.NotContains(t, body["units"].([]any)[0].(map[string]any), "text_content")

	rec = serve(r, http.MethodGet, "/courses/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodGet, "/courses/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCourseRequiresLogin(t *testing.T) {
	f := newFixture(t, paidCourse())
	r := router(NewHandler(f.svc, f.progress, new(mockIndexer)), nil)

	rec := serve(r, http.MethodGet, "/courses/"+uintStr(f.courseID), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusEndpointsRequireAccess(t *testing.T) {
	f := newFixture(t, paidCourse())
	user := &models.User{Role: models.RoleUser}
	f.user(t, user)
	r := router(NewHandler(f.svc, f.progress, new(mockIndexer)), user)

	rec := serve(r, http.MethodPut, "/courses/"+uintStr(f.courseID)+"/units/1/status", `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(r, http.MethodPut, "/courses/"+uintStr(f.courseID)+"/status", `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusEndpoints(t *testing.T) {
	f := newFixture(t, paidCourse())
	admin := &models.User{Role: models.RoleAdmin}
	f.user(t, admin)
	r := router(NewHandler(f.svc, f.progress, new(mockIndexer)), admin)
	base := "/courses/" + uintStr(f.courseID)

	rec := serve(r, http.MethodPut, base+"/units/1.1/status", `{"status":"COMPLETED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var node content.ProgressNode
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&node))
	assert.Equal(t, content.NodeID("1.1"), node.ID)
	assert.Equal(t, content.Completed, node.Status)

	rec = serve(r, http.MethodPut, base+"/status", `{"status":"IN_PROGRESS"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"IN_PROGRESS"}`, rec.Body.String())

	rec = serve(r, http.MethodPut, base+"/status", `{"status":"FINISHED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPut, base+"/units/nope/status", `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCourse(t *testing.T) {
	f := newFixture(t, paidCourse())
	admin := &models.User{Role: models.RoleAdmin}
	f.user(t, admin)
	idx := new(mockIndexer)
	idx.On("IndexCourse", mock.Anything, mock.MatchedBy(func(d *content.CourseDocument) bool {
		return d.Title == "Compilers" && d.ID != 0
	})).Return(nil).Once()
	r := router(NewHandler(f.svc, f.progress, idx), admin)

	rec := serve(r, http.MethodPost, "/courses", `{"title":"Compilers","units":[{"id":1,"title":"Lexing"},{"id":2,"title":"Parsing"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc content.CourseDocument
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.NotZero(t, doc.ID)
	assert.Equal(t, content.NodeID("1"), doc.Units[0].ID)

	rec = serve(r, http.MethodPost, "/courses", `{"title":"Dup","units":[{"id":"1","title":"a"},{"id":"1","title":"b"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	idx.AssertExpectations(t)
}

func TestListAppliesDefaultPrice(t *testing.T) {
	doc := paidCourse()
	doc.Price = 0
	f := newFixture(t, doc)
	r := router(NewHandler(f.svc, f.progress, new(mockIndexer)), nil)

	rec := serve(r, http.MethodGet, "/courses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hits []search.CourseHit
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hits))
	require.Len(t, hits, 1)
	assert.Equal(t, 10.0, hits[0].Price)
	assert.NotContains(t, rec.Body.String(), "lamport")
}

func TestDeleteCourse(t *testing.T) {
	f := newFixture(t, paidCourse())
	idx := new(mockIndexer)
	idx.On("DeleteCourse", mock.Anything, f.courseID).Return(nil).Once()
	r := router(NewHandler(f.svc, f.progress, idx), &models.User{Role: models.RoleAdmin})

	rec := serve(r, http.MethodDelete, "/courses/"+uintStr(f.courseID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(r, http.MethodDelete, "/courses/"+uintStr(f.courseID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	idx.AssertExpectations(t)
}
