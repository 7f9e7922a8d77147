package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"coursehub/pkg/content"
	"coursehub/pkg/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	coursesIndex  = "courses"
	articlesIndex = "articles"
)

// CourseHit is the searchable summary of a course. Unit bodies are never
// indexed.
type CourseHit struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	SubTitle    string  `json:"sub_title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
	Price       float64 `json:"price"`
}

type ArticleHit struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url,omitempty"`
}

type Index struct {
	es *elasticsearch.Client
}

func NewIndex(es *elasticsearch.Client) *Index {
	return &Index{es: es}
}

func CourseSummary(doc *content.CourseDocument) CourseHit {
	return CourseHit{
		ID:          doc.ID,
		Title:       doc.Title,
		SubTitle:    doc.SubTitle,
		Description: doc.Description,
		ImageURL:    doc.ImageURL,
		Price:       doc.Price,
	}
}

func (i *Index) IndexCourse(ctx context.Context, doc *content.CourseDocument) error {
	return i.put(ctx, coursesIndex, doc.ID, CourseSummary(doc))
}

func (i *Index) DeleteCourse(ctx context.Context, id uint) error {
	return i.delete(ctx, coursesIndex, id)
}

func (i *Index) IndexArticle(ctx context.Context, a *models.Article) error {
	return i.put(ctx, articlesIndex, a.ID, ArticleHit{
		ID:       a.ID,
		Title:    a.Title,
		Slug:     a.Slug,
		Summary:  a.Summary,
		ImageURL: a.ImageURL,
	})
}

func (i *Index) DeleteArticle(ctx context.Context, id uint) error {
	return i.delete(ctx, articlesIndex, id)
}

type CourseLister interface {
	List(ctx context.Context) ([]*content.CourseDocument, error)
}

type ArticleLister interface {
	List(ctx context.Context, withDrafts bool) ([]models.Article, error)
}

// Rebuild indexes every course and every published article. It keeps going
// past single failures and returns them joined.
func (i *Index) Rebuild(ctx context.Context, courses CourseLister, articles ArticleLister) (int, error) {
	docs, err := courses.List(ctx)
	if err != nil {
		return 0, err
	}
	list, err := articles.List(ctx, false)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, doc := range docs {
		if err := i.IndexCourse(ctx, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	for k := range list {
		if err := i.IndexArticle(ctx, &list[k]); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// SearchCourses matches q anywhere in the title or description, ignoring case.
func (i *Index) SearchCourses(ctx context.Context, q string) ([]CourseHit, error) {
	return search[CourseHit](ctx, i.es, coursesIndex, wildcardQuery(q, "title", "description"))
}

func (i *Index) SearchArticles(ctx context.Context, q string) ([]ArticleHit, error) {
	return search[ArticleHit](ctx, i.es, articlesIndex, wildcardQuery(q, "title", "summary"))
}

func (i *Index) put(ctx context.Context, index string, id uint, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", index, err)
	}
	res, err := i.es.Index(
		index,
		bytes.NewReader(data),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(strconv.FormatUint(uint64(id), 10)),
		i.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s/%d: %s", index, id, res.String())
	}
	return nil
}

func (i *Index) delete(ctx context.Context, index string, id uint) error {
	res, err := i.es.Delete(
		index,
		strconv.FormatUint(uint64(id), 10),
		i.es.Delete.WithContext(ctx),
		i.es.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete %s/%d: %s", index, id, res.String())
	}
	return nil
}

func wildcardQuery(q string, fields ...string) map[string]any {
	should := make([]any, 0, len(fields))
	for _, f := range fields {
		should = append(should, map[string]any{
			"wildcard": map[string]any{
				f: map[string]any{
					"value":            "*" + q + "*",
					"case_insensitive": true,
				},
			},
		})
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"should": should},
		},
	}
}

type searchResponse[T any] struct {
	Hits struct {
		Hits []struct {
			Source T `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func search[T any](ctx context.Context, es *elasticsearch.Client, index string, query map[string]any) ([]T, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
		es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", index, res.String())
	}
	var body searchResponse[T]
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]T, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		hits = append(hits, h.Source)
	}
	return hits, nil
}
