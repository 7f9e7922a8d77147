package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type ProgressStatus string

const (
	NotStarted ProgressStatus = "NOT_STARTED"
	InProgress ProgressStatus = "IN_PROGRESS"
	Completed  ProgressStatus = "COMPLETED"
)

func (s ProgressStatus) Valid() bool {
	switch s {
	case NotStarted, InProgress, Completed:
		return true
	}
	return false
}

func (s *ProgressStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("progress status: %w", err)
	}
	v := ProgressStatus(raw)
	if !v.Valid() {
		return fmt.Errorf("progress status: unknown value %q", raw)
	}
	*s = v
	return nil
}

// StatusPtr returns a pointer to a copy of s.
func StatusPtr(s ProgressStatus) *ProgressStatus {
	return &s
}

// NodeID identifies units, questions and answers. Authoring tools emit
// either JSON strings or integers; both decode to the same string form.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("node id: %q is not an integer", n.String())
	}
	*id = NodeID(n.String())
	return nil
}

type CourseDocument struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	SubTitle    string          `json:"sub_title"`
	Description string          `json:"description"`
	TextContent *string         `json:"text_content,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	VideoURL    *string         `json:"video_url,omitempty"`
	Price       float64         `json:"price"`
	Status      *ProgressStatus `json:"status,omitempty"`
	Units       []*Unit         `json:"units"`
}

type Unit struct {
	ID          NodeID          `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	TextContent *string         `json:"text_content,omitempty"`
	VideoURL    *string         `json:"video_url,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	SubUnits    []*Unit         `json:"sub_units,omitempty"`
	Exam        *Exam           `json:"exam,omitempty"`
	Status      *ProgressStatus `json:"status,omitempty"`
}

type Exam struct {
	Questions       []*Question     `json:"questions"`
	RetriesAllowed  int             `json:"retries_allowed"`
	RetriesTaken    int             `json:"retries_taken"`
	Status          *ProgressStatus `json:"status,omitempty"`
	Result          *ExamResult     `json:"result,omitempty"`
	PreviousResults []ExamResult    `json:"previous_results,omitempty"`
}

type Question struct {
	ID       NodeID    `json:"id"`
	Question string    `json:"question"`
	Answers  []*Answer `json:"answers"`
}

type Answer struct {
	ID      NodeID `json:"id"`
	Text    string `json:"text"`
	Correct *bool  `json:"correct,omitempty"`
}

func (a *Answer) IsCorrect() bool {
	return a.Correct != nil && *a.Correct
}

type UserAnswer struct {
	QuestionID       NodeID `json:"questionId" validate:"required"`
	SelectedAnswerID NodeID `json:"selectedAnswerId" validate:"required"`
}

type ExamResult struct {
	Score       int          `json:"score"`
	Answers     []UserAnswer `json:"answers"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

// CorrectAnswer returns the first answer flagged correct, or nil.
func (q *Question) CorrectAnswer() *Answer {
	for _, a := range q.Answers {
		if a.IsCorrect() {
			return a
		}
	}
	return nil
}

// FindQuestion returns the question with the given id, or nil.
func (e *Exam) FindQuestion(id NodeID) *Question {
	for _, q := range e.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}
