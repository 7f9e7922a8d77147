package content

import (
	"fmt"
	"strings"
)

// FindUnit searches units depth-first and returns the first unit whose id
// matches. Ids may repeat across levels, so order matters.
func FindUnit(units []*Unit, id NodeID) *Unit {
	for _, u := range units {
		if u.ID == id {
			return u
		}
		if found := FindUnit(u.SubUnits, id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every unit depth-first, parents before children.
func Walk(units []*Unit, fn func(u *Unit)) {
	for _, u := range units {
		fn(u)
		Walk(u.SubUnits, fn)
	}
}

// CountUnits returns the number of units at every depth.
func CountUnits(units []*Unit) int {
	n := 0
	Walk(units, func(*Unit) { n++ })
	return n
}

// Redact removes paid material from every unit at every depth. Title,
// description and image stay visible.
func Redact(doc *CourseDocument) {
	Walk(doc.Units, func(u *Unit) {
		u.TextContent = nil
		u.VideoURL = nil
		u.Exam = nil
	})
}

// StripAnswerKey clears the correct flag on every answer of every exam.
func StripAnswerKey(doc *CourseDocument) {
	Walk(doc.Units, func(u *Unit) {
		if u.Exam == nil {
			return
		}
		for _, q := range u.Exam.Questions {
			for _, a := range q.Answers {
				a.Correct = nil
			}
		}
	})
}

// Validate checks the structural rules authoring must respect: non-empty
// ids unique among siblings, answer ids unique per question and
// non-negative retry limits.
func Validate(doc *CourseDocument) error {
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("course title is required")
	}
	return validateUnits(doc.Units, "units")
}

func validateUnits(units []*Unit, path string) error {
	seen := make(map[NodeID]bool, len(units))
	for i, u := range units {
		at := fmt.Sprintf("%s[%d]", path, i)
		if u == nil {
			return fmt.Errorf("%s: unit is null", at)
		}
		if u.ID == "" {
			return fmt.Errorf("%s: unit id is required", at)
		}
		if seen[u.ID] {
			return fmt.Errorf("%s: duplicate unit id %q", at, u.ID)
		}
		seen[u.ID] = true
		if u.Exam != nil {
			if err := validateExam(u.Exam, at+".exam"); err != nil {
				return err
			}
		}
		if err := validateUnits(u.SubUnits, at+".sub_units"); err != nil {
			return err
		}
	}
	return nil
}

func validateExam(e *Exam, path string) error {
	if e.RetriesAllowed < 0 {
		return fmt.Errorf("%s: retries_allowed must not be negative", path)
	}
	questions := make(map[NodeID]bool, len(e.Questions))
	for i, q := range e.Questions {
		at := fmt.Sprintf("%s.questions[%d]", path, i)
		if q == nil || q.ID == "" {
			return fmt.Errorf("%s: question id is required", at)
		}
		if questions[q.ID] {
			return fmt.Errorf("%s: duplicate question id %q", at, q.ID)
		}
		questions[q.ID] = true
		answers := make(map[NodeID]bool, len(q.Answers))
		for j, a := range q.Answers {
			if a == nil || a.ID == "" {
				return fmt.Errorf("%s.answers[%d]: answer id is required", at, j)
			}
			if answers[a.ID] {
				return fmt.Errorf("%s.answers[%d]: duplicate answer id %q", at, j, a.ID)
			}
			answers[a.ID] = true
		}
	}
	return nil
}
