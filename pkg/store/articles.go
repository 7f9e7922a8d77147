package store

import (
	"context"
	"errors"
	"fmt"

	"coursehub/pkg/apperr"
	"coursehub/pkg/models"

	"gorm.io/gorm"
)

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// List returns articles newest first. Drafts are skipped unless withDrafts.
func (r *ArticleRepository) List(ctx context.Context, withDrafts bool) ([]models.Article, error) {
	q := r.db.WithContext(ctx).Order("id desc")
	if !withDrafts {
		q = q.Where("published = ?", true)
	}
	var out []models.Article
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return out, nil
}

func (r *ArticleRepository) FindBySlug(ctx context.Context, slug string, withDrafts bool) (*models.Article, error) {
	q := r.db.WithContext(ctx).Where("slug = ?", slug)
	if !withDrafts {
		q = q.Where("published = ?", true)
	}
	var a models.Article
	err := q.First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("article %q not found", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load article %q: %w", slug, err)
	}
	return &a, nil
}

func (r *ArticleRepository) FindByID(ctx context.Context, id uint) (*models.Article, error) {
	var a models.Article
	err := r.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("article %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	return &a, nil
}

func (r *ArticleRepository) Create(ctx context.Context, a *models.Article) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, err, "slug %q already used", a.Slug)
	}
	if err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// Save writes every column of an existing article.
func (r *ArticleRepository) Save(ctx context.Context, a *models.Article) error {
	err := r.db.WithContext(ctx).Save(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, err, "slug %q already used", a.Slug)
	}
	if err != nil {
		return fmt.Errorf("save article %d: %w", a.ID, err)
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Article{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete article %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("article %d not found", id)
	}
	return nil
}
