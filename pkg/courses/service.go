package courses

import (
	"context"

	"coursehub/pkg/access"
	"coursehub/pkg/content"
	"coursehub/pkg/logging"
	"coursehub/pkg/models"
)

type CourseRepository interface {
	FindByID(ctx context.Context, id uint) (*content.CourseDocument, error)
	List(ctx context.Context) ([]*content.CourseDocument, error)
	Create(ctx context.Context, doc *content.CourseDocument) error
	Update(ctx context.Context, doc *content.CourseDocument) error
	Delete(ctx context.Context, id uint) error
}

type AccessEvaluator interface {
	HasAccess(ctx context.Context, courseID uint, p access.Principal) (bool, error)
}

type ProgressStore interface {
	GetOrCreate(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error)
}

// CourseDetails is a course as seen by one caller: redacted when access is
// denied, merged with the caller's progress otherwise.
type CourseDetails struct {
	*content.CourseDocument
	HasAccess bool `json:"has_access"`
}

type Service struct {
	courses      CourseRepository
	access       AccessEvaluator
	progress     ProgressStore
	defaultPrice float64
}

func NewService(courses CourseRepository, access AccessEvaluator, progress ProgressStore, defaultPrice float64) *Service {
	return &Service{courses: courses, access: access, progress: progress, defaultPrice: defaultPrice}
}

func (s *Service) GetCourseWithProgress(ctx context.Context, p access.Principal, courseID uint) (*CourseDetails, error) {
	doc, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.access.HasAccess(ctx, courseID, p)
	if err != nil {
		return nil, err
	}
	if doc.Price == 0 {
		doc.Price = s.defaultPrice
	}

	if !allowed {
		content.Overlay(doc, content.NewProgressDocument(doc))
		content.Redact(doc)
		return &CourseDetails{CourseDocument: doc}, nil
	}

	rec, err := s.progress.GetOrCreate(ctx, p.UserID, courseID)
	if err != nil {
		return nil, err
	}
	content.Overlay(doc, rec.Document())
	if !p.IsAdmin() {
		content.StripAnswerKey(doc)
	}
	logging.FromContext(ctx).Debug("course merged with progress",
		"course_id", courseID, "progress_version", rec.Version)
	return &CourseDetails{CourseDocument: doc, HasAccess: true}, nil
}
