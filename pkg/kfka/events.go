package kfka

import (
	"time"
)

const (
	TopicExamResults     = "exam_results"
	TopicCoursePurchases = "course_purchases"
)

type ExamResultEvent struct {
	UserID      uint      `json:"user_id"`
	Email       string    `json:"email"`
	CourseID    uint      `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	UnitID      string    `json:"unit_id"`
	UnitTitle   string    `json:"unit_title"`
	Score       int       `json:"score"`
	Attempt     int       `json:"attempt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (e *ExamResultEvent) Key() string {
	return "exam_result"
}

type PurchaseKind string

const (
	PurchaseCourse PurchaseKind = "course"
	PurchasePro    PurchaseKind = "pro_membership"
)

type PurchaseEvent struct {
	UserID      uint         `json:"user_id"`
	Email       string       `json:"email"`
	Kind        PurchaseKind `json:"kind"`
	CourseID    uint         `json:"course_id,omitempty"`
	CourseTitle string       `json:"course_title,omitempty"`
	ProUntil    *time.Time   `json:"pro_until,omitempty"`
}

func (e *PurchaseEvent) Key() string {
	return string(e.Kind)
}
