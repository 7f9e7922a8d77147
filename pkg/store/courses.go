package store

import (
	"context"
	"errors"
	"fmt"

	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*content.CourseDocument, error) {
	var course models.Course
	err := r.db.WithContext(ctx).First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("course %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", id, err)
	}
	return course.Document(), nil
}

// List returns every course, newest first.
func (r *CourseRepository) List(ctx context.Context) ([]*content.CourseDocument, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("id desc").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	docs := make([]*content.CourseDocument, 0, len(courses))
	for i := range courses {
		docs = append(docs, courses[i].Document())
	}
	return docs, nil
}

// Create stores doc as a new course and sets doc.ID.
func (r *CourseRepository) Create(ctx context.Context, doc *content.CourseDocument) error {
	course := models.Course{Title: doc.Title}
	doc.ID = 0
	course.Payload = datatypes.NewJSONType(*doc)
	if err := r.db.WithContext(ctx).Create(&course).Error; err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	doc.ID = course.ID
	return nil
}

// Update replaces the stored document of an existing course.
func (r *CourseRepository) Update(ctx context.Context, doc *content.CourseDocument) error {
	res := r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", doc.ID).
		Updates(map[string]any{
			"title":   doc.Title,
			"payload": datatypes.NewJSONType(*doc),
		})
	if res.Error != nil {
		return fmt.Errorf("update course %d: %w", doc.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("course %d not found", doc.ID)
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Course{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete course %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("course %d not found", id)
	}
	return nil
}
