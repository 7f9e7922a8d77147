package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func nestedUnits() []*Unit {
	return []*Unit{
		{
			ID:    "1",
			Title: "Intro",
			SubUnits: []*Unit{
				{ID: "1", Title: "Nested duplicate"},
				{ID: "2", Title: "Deep", SubUnits: []*Unit{{ID: "3", Title: "Deepest"}}},
			},
		},
		{ID: "3", Title: "Top level three"},
	}
}

func TestFindUnitDepthFirstFirstMatch(t *testing.T) {
	units := nestedUnits()

	assert.Equal(t, "Intro", FindUnit(units, "1").Title)
	assert.Equal(t, "Deepest", FindUnit(units, "3").Title)
	assert.Equal(t, "Deep", FindUnit(units, "2").Title)
	assert.Nil(t, FindUnit(units, "42"))
	assert.Nil(t, FindUnit(nil, "1"))
}

func TestCountUnits(t *testing.T) {
	assert.Equal(t, 5, CountUnits(nestedUnits()))
	assert.Equal(t, 0, CountUnits(nil))
}

func TestRedactEveryDepth(t *testing.T) {
	doc := &CourseDocument{
		Title: "Go",
		Units: []*Unit{{
			ID:          "1",
			Title:       "Unit",
			Description: strPtr("about"),
			ImageURL:    strPtr("img"),
			TextContent: strPtr("secret"),
			VideoURL:    strPtr("video"),
			Exam:        &Exam{RetriesAllowed: 1},
			SubUnits: []*Unit{{
				ID:          "2",
				Title:       "Sub",
				TextContent: strPtr("deep secret"),
				Exam:        &Exam{},
			}},
		}},
	}

	Redact(doc)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "text_content")
	assert.NotContains(t, string(raw), "video_url")
	assert.NotContains(t, string(raw), "exam")
	assert.Contains(t, string(raw), `"image_url":"img"`)
	assert.Contains(t, string(raw), `"description":"about"`)
	assert.Equal(t, "Sub", doc.Units[0].SubUnits[0].Title)
}

func TestNodeIDAcceptsStringsAndIntegers(t *testing.T) {
	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"question":"?","answers":[{"id":"a","text":"x","correct":true}]}`), &q))
	assert.Equal(t, NodeID("1"), q.ID)
	assert.Equal(t, NodeID("a"), q.Answers[0].ID)
	assert.True(t, q.Answers[0].IsCorrect())

	var bad NodeID
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestProgressStatusRejectsUnknownValues(t *testing.T) {
	var s ProgressStatus
	require.NoError(t, json.Unmarshal([]byte(`"IN_PROGRESS"`), &s))
	assert.Equal(t, InProgress, s)
	assert.Error(t, json.Unmarshal([]byte(`"DONE"`), &s))
}

func TestValidate(t *testing.T) {
	valid := &CourseDocument{Title: "Go", Units: nestedUnits()}
	assert.NoError(t, Validate(valid))

	tests := []struct {
		name string
		doc  *CourseDocument
	}{
		{"missing title", &CourseDocument{}},
		{"empty unit id", &CourseDocument{Title: "x", Units: []*Unit{{Title: "a"}}}},
		{"duplicate siblings", &CourseDocument{Title: "x", Units: []*Unit{{ID: "1"}, {ID: "1"}}}},
		{"negative retries", &CourseDocument{Title: "x", Units: []*Unit{{ID: "1", Exam: &Exam{RetriesAllowed: -1}}}}},
		{"duplicate answers", &CourseDocument{Title: "x", Units: []*Unit{{ID: "1", Exam: &Exam{
			Questions: []*Question{{ID: "q", Answers: []*Answer{{ID: "a"}, {ID: "a"}}}},
		}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.doc))
		})
	}
}

func TestStripAnswerKey(t *testing.T) {
	yes := true
	doc := &CourseDocument{Units: []*Unit{{ID: "1", SubUnits: []*Unit{{ID: "2", Exam: &Exam{
		Questions: []*Question{{ID: "q", Answers: []*Answer{{ID: "a", Correct: &yes}}}},
	}}}}}}

	StripAnswerKey(doc)

	assert.Nil(t, doc.Units[0].SubUnits[0].Exam.Questions[0].Answers[0].Correct)
}
