package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/model"
)

func readingModule() *model.Module {
	return &model.Module{
		Type: model.ModuleReading,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					{ID: "q1", Order: 1, CorrectAnswer: `["blue","navy"]`},
					{ID: "q2", Order: 2, CorrectAnswer: `["7"]`},
				},
			},
		},
	}
}

func TestGradeAcceptsAnyVariant(t *testing.T) {
	m := readingModule()

	result := Grade(m, map[string]string{"q1": "Navy", "q2": "7"})

	assert.Equal(t, 2, result.Raw)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 9.0, result.Band)

	require.Len(t, result.Breakdown, 2)
	// The persisted key is always the first variant, even when the user
	// matched a later one.
	assert.Equal(t, "blue", result.Breakdown[0].AnswerKey)
	assert.True(t, result.Breakdown[0].Correct)
}

func TestGradeTrimsAndCaseFolds(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleReading,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					{ID: "q1", Order: 1, CorrectAnswer: `["Paris"]`},
				},
			},
		},
	}

	result := Grade(m, map[string]string{"q1": "  paris "})
	assert.Equal(t, 1, result.Raw)
}

func TestGradeKeyedAnswersFoldUpper(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleReading,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupBooleanChoice,
				Questions: []model.Question{
					{ID: "q1", Order: 1, CorrectAnswer: `["TRUE"]`},
				},
			},
		},
	}

	result := Grade(m, map[string]string{"q1": "true"})
	assert.Equal(t, 1, result.Raw)
	assert.Equal(t, "TRUE", result.Breakdown[0].AnswerKey)
}

func TestGradeEmptyAnswerNeverCorrect(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleReading,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					// A key with an empty variant must not make a blank
					// answer count as correct.
					{ID: "q1", Order: 1, CorrectAnswer: `[""]`},
				},
			},
		},
	}

	result := Grade(m, map[string]string{"q1": "   "})
	assert.Equal(t, 0, result.Raw)
}

func TestGradeMalformedKeyFallsBackToRawString(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleReading,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					{ID: "q1", Order: 1, CorrectAnswer: `["unterminated`},
				},
			},
		},
	}

	result := Grade(m, map[string]string{"q1": `["unterminated`})
	assert.Equal(t, 1, result.Raw)
	assert.Equal(t, `["unterminated`, result.Breakdown[0].AnswerKey)
}

func TestGradeIsIdempotent(t *testing.T) {
	m := readingModule()
	answers := map[string]string{"q1": "blue"}

	first := Grade(m, answers)
	second := Grade(m, answers)
	assert.Equal(t, first, second)
}

func TestGradeEmptyModule(t *testing.T) {
	m := &model.Module{Type: model.ModuleReading}
	result := Grade(m, nil)

	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 5.0, result.Band)
}

func TestBandForPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		band float64
	}{
		{100, 9.0},
		{90, 9.0},
		{89.9, 8.5},
		{85, 8.5},
		{80, 8.0},
		{75, 7.5},
		{70, 7.0},
		{65, 7.0},
		{60, 6.5},
		{55, 6.5},
		{45, 6.0},
		{35, 5.5},
		{34.9, 5.0},
		{0, 5.0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.band, BandForPercentage(tc.pct), "pct=%v", tc.pct)
	}
}

func TestBuildModuleRequestUsesCanonicalKey(t *testing.T) {
	m := readingModule()

	req := BuildModuleRequest(m, map[string]string{"q1": "navy"})

	require.Len(t, req.Questions, 2)
	assert.Equal(t, "blue", req.Questions[0].AnswerKey)

	// Only answered questions appear in userAnswers.
	assert.Equal(t, map[string]string{"q1": "navy"}, req.UserAnswers)
}

func TestBuildWritingRequestTaskMapping(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleWriting,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					{ID: "t1", Order: 1, Text: "Describe the chart."},
					{ID: "t2", Order: 2, Text: "Discuss both views."},
				},
			},
		},
	}

	req := BuildWritingRequest(m, map[string]string{
		"t1": "The chart shows...",
		"t2": "Some people argue...",
	})

	require.NotNil(t, req.Task1)
	require.NotNil(t, req.Task2)
	assert.Equal(t, "The chart shows...", req.Task1.Answer)
	assert.Equal(t, "Some people argue...", req.Task2.Answer)
}

func TestBuildWritingRequestUnansweredTask1Omitted(t *testing.T) {
	m := &model.Module{
		Type: model.ModuleWriting,
		Groups: []model.QuestionGroup{
			{
				ID:   "g1",
				Type: model.GroupFreeText,
				Questions: []model.Question{
					{ID: "t1", Order: 1, Text: "Describe the chart."},
					{ID: "t2", Order: 2, Text: "Discuss both views."},
				},
			},
		},
	}

	req := BuildWritingRequest(m, map[string]string{"t2": "Some people argue..."})

	assert.Nil(t, req.Task1)
	require.NotNil(t, req.Task2)
}
