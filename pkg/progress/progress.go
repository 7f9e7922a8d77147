package progress

import (
	"context"
	"errors"

	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/logging"
	"coursehub/pkg/models"
)

// Repository persists progress records. Find returns an apperr NotFound
// error when no record exists, Create returns Conflict when the
// (user, course) pair already has one, and Save returns Conflict when the
// record's version no longer matches the stored one.
type Repository interface {
	Find(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error)
	Create(ctx context.Context, rec *models.ProgressRecord) error
	Save(ctx context.Context, rec *models.ProgressRecord) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type CourseFinder interface {
	FindByID(ctx context.Context, id uint) (*content.CourseDocument, error)
}

const DefaultMaxAttempts = 3

type Store struct {
	repo        Repository
	courses     CourseFinder
	maxAttempts int
}

func NewStore(repo Repository, courses CourseFinder, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{repo: repo, courses: courses, maxAttempts: maxAttempts}
}

// GetOrCreate returns the user's progress for a course, creating it from the
// course's current unit tree on first access.
func (s *Store) GetOrCreate(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error) {
	rec, err := s.repo.Find(ctx, userID, courseID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rec = &models.ProgressRecord{UserID: userID, CourseID: courseID}
	rec.SetDocument(content.NewProgressDocument(course))

	err = s.repo.Create(ctx, rec)
	if errors.Is(err, apperr.ErrConflict) {
		logging.FromContext(ctx).Debug("progress created concurrently, reloading",
			"user_id", userID, "course_id", courseID)
		return s.repo.Find(ctx, userID, courseID)
	}
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("progress initialized",
		"user_id", userID, "course_id", courseID, "units", content.CountUnits(course.Units))
	return rec, nil
}

// Retry runs fn until it succeeds, fails with anything other than a
// version conflict, or the attempt budget is spent.
func (s *Store) Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = fn()
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		logging.FromContext(ctx).Warn("progress write conflict", "attempt", attempt)
	}
	return err
}

// Save writes doc into rec and persists it under the record's version.
func (s *Store) Save(ctx context.Context, rec *models.ProgressRecord, doc *content.ProgressDocument) error {
	rec.SetDocument(doc)
	return s.repo.Save(ctx, rec)
}

func (s *Store) DeleteByUser(ctx context.Context, userID uint) error {
	return s.repo.DeleteByUser(ctx, userID)
}

// UpdateCourseStatus overwrites the course-level status. Any status may
// follow any other.
func (s *Store) UpdateCourseStatus(ctx context.Context, userID, courseID uint, status content.ProgressStatus) (content.ProgressStatus, error) {
	if !status.Valid() {
		return "", apperr.BadRequest("invalid status %q", status)
	}
	err := s.Retry(ctx, func() error {
		rec, err := s.GetOrCreate(ctx, userID, courseID)
		if err != nil {
			return err
		}
		doc := rec.Document()
		doc.Status = status
		return s.Save(ctx, rec, doc)
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// UpdateUnitStatus overwrites the status of the first unit matching unitID
// in depth-first order and returns the updated node.
func (s *Store) UpdateUnitStatus(ctx context.Context, userID, courseID uint, unitID content.NodeID, status content.ProgressStatus) (*content.ProgressNode, error) {
	if !status.Valid() {
		return nil, apperr.BadRequest("invalid status %q", status)
	}
	var updated *content.ProgressNode
	err := s.Retry(ctx, func() error {
		rec, err := s.GetOrCreate(ctx, userID, courseID)
		if err != nil {
			return err
		}
		doc := rec.Document()
		node := content.FindNode(doc.Units, unitID)
		if node == nil {
			return apperr.NotFound("unit %s not found in course %d", unitID, courseID)
		}
		node.Status = status
		if err := s.Save(ctx, rec, doc); err != nil {
			return err
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
