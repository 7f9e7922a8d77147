package courses

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"coursehub/pkg/access"
	"coursehub/pkg/apperr"
	"coursehub/pkg/content"
	"coursehub/pkg/models"
	"coursehub/pkg/progress"
	"coursehub/pkg/store"
	"coursehub/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func paidCourse() *content.CourseDocument {
	return &content.CourseDocument{
		Title:       "Distributed systems",
		Description: "Consensus and friends",
		TextContent: strPtr("course intro"),
		Price:       49,
		Units: []*content.Unit{
			{
				ID:          "1",
				Title:       "Clocks",
				Description: strPtr("time is hard"),
				ImageURL:    strPtr("clock.png"),
				TextContent: strPtr("lamport"),
				VideoURL:    strPtr("clocks.mp4"),
				SubUnits: []*content.Unit{{
					ID:          "1.1",
					Title:       "Vector clocks",
					TextContent: strPtr("vectors"),
					VideoURL:    strPtr("vectors.mp4"),
					Exam: &content.Exam{
						RetriesAllowed: 2,
						Questions: []*content.Question{{
							ID:       "q1",
							Question: "Causal?",
							Answers: []*content.Answer{
								{ID: "a", Text: "yes", Correct: boolPtr(true)},
								{ID: "b", Text: "no", Correct: boolPtr(false)},
							},
						}},
					},
				}},
			},
			{ID: "2", Title: "Raft", TextContent: strPtr("leaders")},
		},
	}
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	progress *progress.Store
	courseID uint
}

func newFixture(t *testing.T, doc *content.CourseDocument) *fixture {
	t.Helper()
	db := storetest.Open(t)
	storetest.SeedCourse(t, db, doc)
	courses := store.NewCourseRepository(db)
	progressStore := progress.NewStore(store.NewProgressRepository(db), courses, progress.DefaultMaxAttempts)
	svc := NewService(courses, access.NewEvaluator(store.NewUserRepository(db)), progressStore, 10)
	return &fixture{db: db, svc: svc, progress: progressStore, courseID: doc.ID}
}

func (f *fixture) user(t *testing.T, u *models.User) access.Principal {
	t.Helper()
	storetest.SeedUser(t, f.db, u)
	return access.Principal{UserID: u.ID, Role: u.Role}
}

func TestNonPurchaserGetsRedactedCourse(t *testing.T) {
	f := newFixture(t, paidCourse())
	p := f.user(t, &models.User{Role: models.RoleUser})

	details, err := f.svc.GetCourseWithProgress(context.Background(), p, f.courseID)
	require.NoError(t, err)
	assert.False(t, details.HasAccess)
	assert.Equal(t, f.courseID, details.ID)
	assert.Equal(t, 49.0, details.Price)

	content.Walk(details.Units, func(u *content.Unit) {
		assert.Nil(t, u.TextContent, u.ID)
		assert.Nil(t, u.VideoURL, u.ID)
		assert.Nil(t, u.Exam, u.ID)
		require.NotNil(t, u.Status, u.ID)
		assert.Equal(t, content.NotStarted, *u.Status, u.ID)
	})
	assert.Equal(t, "Clocks", details.Units[0].Title)
	assert.Equal(t, "clock.png", *details.Units[0].ImageURL)
	assert.Equal(t, "time is hard", *details.Units[0].Description)

	raw, err := json.Marshal(details)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "text_content\":\"lamport")
	assert.NotContains(t, string(raw), "vectors")
	assert.NotContains(t, string(raw), `"exam"`)
	assert.Contains(t, string(raw), `"has_access":false`)

	var count int64
	require.NoError(t, f.db.Model(&models.ProgressRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPurchaserGetsMergedCourse(t *testing.T) {
	doc := paidCourse()
	f := newFixture(t, doc)
	p := f.user(t, &models.User{Role: models.RoleUser, PurchasedCourses: []models.Course{{Model: gorm.Model{ID: doc.ID}}}})
	ctx := context.Background()

	_, err := f.progress.UpdateUnitStatus(ctx, p.UserID, f.courseID, "1.1", content.InProgress)
	require.NoError(t, err)

	details, err := f.svc.GetCourseWithProgress(ctx, p, f.courseID)
	require.NoError(t, err)
	assert.True(t, details.HasAccess)
	require.NotNil(t, details.Status)
	assert.Equal(t, content.NotStarted, *details.Status)

	sub := content.FindUnit(details.Units, "1.1")
	assert.Equal(t, "vectors", *sub.TextContent)
	assert.Equal(t, content.InProgress, *sub.Status)
	require.NotNil(t, sub.Exam)
	assert.Equal(t, content.NotStarted, *sub.Exam.Status)
	assert.Equal(t, 2, sub.Exam.RetriesAllowed)
	assert.Nil(t, sub.Exam.Questions[0].Answers[0].Correct)
}

func TestAdminSeesAnswerKey(t *testing.T) {
	f := newFixture(t, paidCourse())
	p := f.user(t, &models.User{Role: models.RoleAdmin})

	details, err := f.svc.GetCourseWithProgress(context.Background(), p, f.courseID)
	require.NoError(t, err)
	assert.True(t, details.HasAccess)

	exam := content.FindUnit(details.Units, "1.1").Exam
	assert.True(t, exam.Questions[0].Answers[0].IsCorrect())
}

func TestExpiredProGetsRedactedCourse(t *testing.T) {
	f := newFixture(t, paidCourse())
	yesterday := time.Now().Add(-24 * time.Hour)
	p := f.user(t, &models.User{Role: models.RolePro, ProMembershipExpiresAt: &yesterday})

	details, err := f.svc.GetCourseWithProgress(context.Background(), p, f.courseID)
	require.NoError(t, err)
	assert.False(t, details.HasAccess)
	assert.Nil(t, details.Units[0].TextContent)
}

func TestMergeFollowsUnitIDsAfterReorder(t *testing.T) {
	doc := paidCourse()
	f := newFixture(t, doc)
	p := f.user(t, &models.User{Role: models.RoleAdmin})
	ctx := context.Background()

	_, err := f.progress.UpdateUnitStatus(ctx, p.UserID, f.courseID, "2", content.Completed)
	require.NoError(t, err)

	doc.Units = []*content.Unit{doc.Units[1], {ID: "3", Title: "Paxos"}, doc.Units[0]}
	require.NoError(t, store.NewCourseRepository(f.db).Update(ctx, doc))

	details, err := f.svc.GetCourseWithProgress(ctx, p, f.courseID)
	require.NoError(t, err)
	assert.Equal(t, content.NodeID("2"), details.Units[0].ID)
	assert.Equal(t, content.Completed, *details.Units[0].Status)
	assert.Equal(t, content.NotStarted, *details.Units[1].Status)
	assert.Equal(t, content.NotStarted, *details.Units[2].Status)
}

func TestDefaultPriceFallback(t *testing.T) {
	doc := paidCourse()
	doc.Price = 0
	f := newFixture(t, doc)
	p := f.user(t, &models.User{Role: models.RoleUser})

	details, err := f.svc.GetCourseWithProgress(context.Background(), p, f.courseID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, details.Price)
}

func TestUnknownCourse(t *testing.T) {
	f := newFixture(t, paidCourse())
	p := f.user(t, &models.User{Role: models.RoleAdmin})

	_, err := f.svc.GetCourseWithProgress(context.Background(), p, f.courseID+1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
