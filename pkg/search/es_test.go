package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"coursehub/pkg/content"
	"coursehub/pkg/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorded struct {
	method string
	path   string
	body   string
}

func fakeES(t *testing.T, reply string) (*Index, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndex(es), func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestIndexCourseSendsSummaryOnly(t *testing.T) {
	idx, requests := fakeES(t, `{"result":"created"}`)
	secret := "paid text"
	doc := &content.CourseDocument{
		ID:    4,
		Title: "Rust",
		Price: 30,
		Units: []*content.Unit{{ID: "1", Title: "Ownership", TextContent: &secret}},
	}

	require.NoError(t, idx.IndexCourse(context.Background(), doc))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/courses/_doc/4", reqs[0].path)
	assert.NotContains(t, reqs[0].body, "paid text")

	var hit CourseHit
	require.NoError(t, json.Unmarshal([]byte(reqs[0].body), &hit))
	assert.Equal(t, CourseHit{ID: 4, Title: "Rust", Price: 30}, hit)
}

func TestSearchCoursesDecodesHits(t *testing.T) {
	idx, requests := fakeES(t, `{"hits":{"total":{"value":2},"hits":[
		{"_source":{"id":1,"title":"Go","price":10}},
		{"_source":{"id":2,"title":"Go advanced","price":20}}
	]}}`)

	hits, err := idx.SearchCourses(context.Background(), "go")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint(2), hits[1].ID)
	assert.Equal(t, "Go advanced", hits[1].Title)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/courses/_search", reqs[0].path)
	assert.Contains(t, reqs[0].body, `"*go*"`)
	assert.Contains(t, reqs[0].body, `"case_insensitive":true`)
}

func TestSearchArticlesEmpty(t *testing.T) {
	idx, _ := fakeES(t, `{"hits":{"hits":[]}}`)

	hits, err := idx.SearchArticles(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

type courseList []*content.CourseDocument

func (c courseList) List(context.Context) ([]*content.CourseDocument, error) { return c, nil }

type articleList []models.Article

func (a articleList) List(_ context.Context, withDrafts bool) ([]models.Article, error) {
	if withDrafts {
		return nil, errors.New("drafts must not be indexed")
	}
	return a, nil
}

func TestRebuildIndexesEverything(t *testing.T) {
	idx, requests := fakeES(t, `{"result":"created"}`)
	courses := courseList{{ID: 1, Title: "Go"}, {ID: 2, Title: "Rust"}}
	articles := articleList{{Model: gorm.Model{ID: 7}, Title: "News", Slug: "news", Published: true}}

	n, err := idx.Rebuild(context.Background(), courses, articles)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var paths []string
	for _, r := range requests() {
		paths = append(paths, r.path)
	}
	assert.ElementsMatch(t, []string{"/courses/_doc/1", "/courses/_doc/2", "/articles/_doc/7"}, paths)
}
