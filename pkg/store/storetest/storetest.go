// Package storetest opens migrated in-memory databases for tests.
package storetest

import (
	"testing"

	"coursehub/pkg/content"
	"coursehub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh in-memory database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Course{},
		&models.ProgressRecord{},
		&models.Article{},
		&models.Media{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// SeedCourse stores doc and sets doc.ID to the new row id.
func SeedCourse(t testing.TB, db *gorm.DB, doc *content.CourseDocument) {
	t.Helper()
	course := models.Course{Title: doc.Title, Payload: datatypes.NewJSONType(*doc)}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	doc.ID = course.ID
}

func SeedUser(t testing.TB, db *gorm.DB, user *models.User) {
	t.Helper()
	if user.Email == "" {
		user.Email = uuid.NewString() + "@example.com"
	}
	if user.Password == "" {
		user.Password = "x"
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}
