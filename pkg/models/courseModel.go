package models

import (
	"time"

	"coursehub/pkg/content"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title   string                                     `gorm:"not null"`
	Payload datatypes.JSONType[content.CourseDocument] `gorm:"not null"`
}

// Document returns the stored payload with the row id applied.
func (c *Course) Document() *content.CourseDocument {
	doc := c.Payload.Data()
	doc.ID = c.ID
	return &doc
}

type ProgressRecord struct {
	ID        uint                                         `gorm:"primaryKey"`
	UserID    uint                                         `gorm:"not null;uniqueIndex:idx_progress_user_course"`
	CourseID  uint                                         `gorm:"not null;uniqueIndex:idx_progress_user_course"`
	Payload   datatypes.JSONType[content.ProgressDocument] `gorm:"not null"`
	Version   int                                          `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document returns the progress payload. Changes only reach the database
// after SetDocument and a save.
func (p *ProgressRecord) Document() *content.ProgressDocument {
	doc := p.Payload.Data()
	return &doc
}

func (p *ProgressRecord) SetDocument(doc *content.ProgressDocument) {
	p.Payload = datatypes.NewJSONType(*doc)
}

type Article struct {
	gorm.Model
	Title     string `gorm:"not null"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Summary   string
	Body      string `gorm:"type:text"`
	ImageURL  string
	Published bool `gorm:"default:false"`
	AuthorID  uint `gorm:"index"`
}

type Media struct {
	gorm.Model
	ObjectKey   string `gorm:"uniqueIndex;not null"`
	FileName    string `gorm:"not null"`
	ContentType string `gorm:"not null"`
	Size        int64  `gorm:"not null"`
	URL         string `gorm:"not null"`
	UploadedBy  uint   `gorm:"index"`
}
