package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptableAnswers(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want []string
	}{
		{"variant list", `["Bazalgette","Joseph Bazalgette"]`, []string{"Bazalgette", "Joseph Bazalgette"}},
		{"single element", `["7"]`, []string{"7"}},
		{"raw string fallback", `TRUE`, []string{"TRUE"}},
		{"malformed json fallback", `["unterminated`, []string{`["unterminated`}},
		{"empty array falls back to raw", `[]`, []string{"[]"}},
		{"empty string", ``, nil},
		{"whitespace only", `   `, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Question{CorrectAnswer: tc.key}
			assert.Equal(t, tc.want, q.AcceptableAnswers())
		})
	}
}

func TestCanonicalAnswerIsFirstVariant(t *testing.T) {
	q := Question{CorrectAnswer: `["blue","navy","azure"]`}
	assert.Equal(t, "blue", q.CanonicalAnswer())

	empty := Question{}
	assert.Equal(t, "", empty.CanonicalAnswer())
}

func TestPartsClusterConsecutiveTitles(t *testing.T) {
	m := Module{
		Groups: []QuestionGroup{
			{Title: "Passage A", Content: "First text."},
			{Title: "Passage A"},
			{Title: "Passage B", Content: "Second text."},
			// A later return to an earlier title is a NEW part; clustering is
			// consecutive only.
			{Title: "Passage A"},
		},
	}

	parts := m.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, "Passage A", parts[0].Title)
	assert.Equal(t, "First text.", parts[0].Content)
	assert.Equal(t, []int{0, 1}, parts[0].GroupIndexes)
	assert.Equal(t, "Passage B", parts[1].Title)
	assert.Equal(t, []int{3}, parts[2].GroupIndexes)
}

func TestPartContentFromFirstGroupCarryingAny(t *testing.T) {
	m := Module{
		Groups: []QuestionGroup{
			{Title: "Passage A"},
			{Title: "Passage A", Content: "Late text."},
		},
	}

	parts := m.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, "Late text.", parts[0].Content)
}

func TestPartIndexForPositionEdges(t *testing.T) {
	assert.Equal(t, 0, PartIndexForPosition(nil, 100))
	assert.Equal(t, 0, PartIndexForPosition([]int{0, 120}, 0))
	assert.Equal(t, 1, PartIndexForPosition([]int{0, 120}, 120))
}

func TestModuleByType(t *testing.T) {
	test := Test{
		Modules: []Module{
			{Type: ModuleReading},
			{Type: ModuleWriting},
		},
	}

	require.NotNil(t, test.ModuleByType(ModuleWriting))
	assert.Nil(t, test.ModuleByType(ModuleListening))
}

func TestQuestionByID(t *testing.T) {
	m := Module{
		Groups: []QuestionGroup{
			{Questions: []Question{{ID: "q1"}}},
			{Questions: []Question{{ID: "q2"}}},
		},
	}

	require.NotNil(t, m.QuestionByID("q2"))
	assert.Nil(t, m.QuestionByID("q9"))
}

func TestDecodeFeedbackFlatShape(t *testing.T) {
	raw := json.RawMessage(`{
		"overall_band": 7.0,
		"module": "reading",
		"examiner_feedback": "Good control of detail.",
		"improvements": ["Check NOT GIVEN items"],
		"accuracy": "30/40"
	}`)

	fb := DecodeFeedback(raw)
	assert.Equal(t, 7.0, fb.OverallBand)
	assert.Equal(t, "Good control of detail.", fb.ExaminerFeedback)
	assert.Equal(t, []string{"Check NOT GIVEN items"}, fb.Improvements)
}

func TestDecodeFeedbackLegacyEnvelope(t *testing.T) {
	raw := json.RawMessage(`{"data":{"feedback":{"examiner_feedback":"Nested but usable.","improvements":[]}}}`)

	fb := DecodeFeedback(raw)
	assert.Equal(t, "Nested but usable.", fb.ExaminerFeedback)
}

func TestDecodeFeedbackSynthesizesPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"nil", nil},
		{"null", json.RawMessage(`null`)},
		{"empty object", json.RawMessage(`{}`)},
		{"garbage", json.RawMessage(`not json at all`)},
		{"empty envelope", json.RawMessage(`{"data":{"feedback":{}}}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := DecodeFeedback(tc.raw)
			assert.Equal(t, "Detailed feedback is not available for this attempt.", fb.ExaminerFeedback)
			assert.NotNil(t, fb.Improvements)
		})
	}
}

func TestDecodeFeedbackNilImprovementsNormalized(t *testing.T) {
	raw := json.RawMessage(`{"examiner_feedback":"Fine work."}`)

	fb := DecodeFeedback(raw)
	assert.Equal(t, "Fine work.", fb.ExaminerFeedback)
	assert.Equal(t, []string{}, fb.Improvements)
}

func TestFlexDecodingOfSessionFeedbackRoundTrip(t *testing.T) {
	fb := ModuleFeedback{
		OverallBand:      6.5,
		ExaminerFeedback: "Reasonable accuracy.",
		Improvements:     []string{"Re-read matching stems"},
	}
	raw, err := json.Marshal(fb)
	require.NoError(t, err)

	decoded := DecodeFeedback(raw)
	assert.Equal(t, fb, decoded)
}
