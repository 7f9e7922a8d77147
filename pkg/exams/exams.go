package exams

import (
	"context"
	"math"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/logging"
	"coursehub/pkg/models"

	"golang.org/x/sync/errgroup"
)

type CourseFinder interface {
	FindByID(ctx context.Context, id uint) (*content.CourseDocument, error)
}

type ProgressStore interface {
	GetOrCreate(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error)
	Save(ctx context.Context, rec *models.ProgressRecord, doc *content.ProgressDocument) error
	Retry(ctx context.Context, fn func() error) error
}

// Grade scores answers against the exam's answer key. Answers to unknown
// questions and repeated answers are ignored; unanswered questions count as
// wrong. An exam without questions scores 0.
func Grade(exam *content.Exam, answers []content.UserAnswer) int {
	if len(exam.Questions) == 0 {
		return 0
	}
	counted := make(map[content.NodeID]bool, len(answers))
	correct := 0
	for _, a := range answers {
		if counted[a.QuestionID] {
			continue
		}
		q := exam.FindQuestion(a.QuestionID)
		if q == nil {
			continue
		}
		counted[a.QuestionID] = true
		if key := q.CorrectAnswer(); key != nil && key.ID == a.SelectedAnswerID {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(exam.Questions)) * 100))
}

type Submission struct {
	Result      content.ExamResult
	CourseTitle string
	UnitTitle   string
	Attempt     int
}

type Service struct {
	courses  CourseFinder
	progress ProgressStore
	now      func() time.Time
}

func NewService(courses CourseFinder, progress ProgressStore) *Service {
	return &Service{courses: courses, progress: progress, now: time.Now}
}

// Submit grades one attempt and records it. The whole read, check and write
// cycle is repeated when another request saved the same progress first, so
// the retry limit holds under concurrent submissions.
func (s *Service) Submit(ctx context.Context, userID, courseID uint, unitID content.NodeID, answers []content.UserAnswer) (*Submission, error) {
	var sub *Submission
	err := s.progress.Retry(ctx, func() error {
		var err error
		sub, err = s.submitOnce(ctx, userID, courseID, unitID, answers)
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("exam submitted",
		"user_id", userID, "course_id", courseID, "unit_id", unitID,
		"score", sub.Result.Score, "attempt", sub.Attempt)
	return sub, nil
}

func (s *Service) submitOnce(ctx context.Context, userID, courseID uint, unitID content.NodeID, answers []content.UserAnswer) (*Submission, error) {
	var (
		rec    *models.ProgressRecord
		course *content.CourseDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.progress.GetOrCreate(gctx, userID, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		course, err = s.courses.FindByID(gctx, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unit := content.FindUnit(course.Units, unitID)
	if unit == nil {
		return nil, apperr.NotFound("unit %s not found in course %d", unitID, courseID)
	}
	if unit.Exam == nil {
		return nil, apperr.NotFound("unit %s has no exam", unitID)
	}
	doc := rec.Document()
	node := content.FindNode(doc.Units, unitID)
	if node == nil {
		return nil, apperr.NotFound("unit %s not found in progress", unitID)
	}
	if node.Exam == nil {
		return nil, apperr.NotFound("unit %s has no exam progress", unitID)
	}
	if node.Exam.RetriesTaken >= unit.Exam.RetriesAllowed {
		return nil, apperr.BadRequest("no retries left for exam in unit %s", unitID)
	}

	result := content.ExamResult{
		Score:       Grade(unit.Exam, answers),
		Answers:     answers,
		SubmittedAt: s.now().UTC(),
	}
	if result.Answers == nil {
		result.Answers = []content.UserAnswer{}
	}
	if node.Exam.Result != nil {
		node.Exam.PreviousResults = append(node.Exam.PreviousResults, *node.Exam.Result)
	}
	if node.Exam.PreviousResults == nil {
		node.Exam.PreviousResults = []content.ExamResult{}
	}
	node.Exam.Result = &result
	node.Exam.RetriesTaken++
	node.Exam.Status = content.Completed
	node.Status = content.Completed

	if err := s.progress.Save(ctx, rec, doc); err != nil {
		return nil, err
	}
	return &Submission{
		Result:      result,
		CourseTitle: course.Title,
		UnitTitle:   unit.Title,
		Attempt:     node.Exam.RetriesTaken,
	}, nil
}
