package grading

import (
	"strings"

	"github.com/prepline/prepline-backend/internal/model"
)

// QuestionResult is the per-question grading breakdown. AnswerKey is the
// canonical (first) acceptable answer; the persisted key is singular even
// though local matching accepts any variant.
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Order      int    `json:"order"`
	UserAnswer string `json:"user_answer"`
	AnswerKey  string `json:"answer_key"`
	Correct    bool   `json:"correct"`
}

// Result is the outcome of grading one module attempt.
type Result struct {
	Raw       int              `json:"raw_score"`
	Total     int              `json:"total_questions"`
	Band      float64          `json:"band_score"`
	Breakdown []QuestionResult `json:"breakdown"`
}

// bandStep is one row of the percentage-to-band table.
type bandStep struct {
	MinPercent float64
	Band       float64
}

// bandTable is evaluated top-down, first match wins. The mapping is
// deliberately non-linear.
var bandTable = []bandStep{
	{90, 9.0},
	{85, 8.5},
	{80, 8.0},
	{75, 7.5},
	{65, 7.0},
	{55, 6.5},
	{45, 6.0},
	{35, 5.5},
}

const bandFloor = 5.0

// BandForPercentage maps a raw percentage to a band score through the ordered
// threshold table.
func BandForPercentage(pct float64) float64 {
	for _, step := range bandTable {
		if pct >= step.MinPercent {
			return step.Band
		}
	}
	return bandFloor
}

// Grade compares every question of a module against the user's answers and
// returns the aggregate result. It is a pure function of its inputs: calling
// it twice on the same (module, answers) yields an identical result.
func Grade(m *model.Module, answers map[string]string) Result {
	var result Result

	for gi := range m.Groups {
		group := &m.Groups[gi]
		keyed := keyedAnswers(group.Type)

		for qi := range group.Questions {
			q := &group.Questions[qi]
			user := answers[q.ID]

			qr := QuestionResult{
				QuestionID: q.ID,
				Order:      q.Order,
				UserAnswer: user,
				AnswerKey:  q.CanonicalAnswer(),
				Correct:    matches(user, q.AcceptableAnswers(), keyed),
			}

			result.Total++
			if qr.Correct {
				result.Raw++
			}
			result.Breakdown = append(result.Breakdown, qr)
		}
	}

	if result.Total > 0 {
		pct := float64(result.Raw) / float64(result.Total) * 100
		result.Band = BandForPercentage(pct)
	} else {
		result.Band = bandFloor
	}

	return result
}

// matches reports whether the normalized user answer equals the normalized
// form of any acceptable variant.
func matches(user string, acceptable []string, keyed bool) bool {
	normUser := normalizeAnswer(user, keyed)
	if normUser == "" {
		return false
	}
	for _, a := range acceptable {
		if normUser == normalizeAnswer(a, keyed) {
			return true
		}
	}
	return false
}

// keyedAnswers reports whether a group's answers are option keys (graded
// upper-cased) rather than free text (graded case-insensitively; folding
// both sides gives the same equality either way, but keyed answers stay
// upper-case in breakdowns elsewhere in the pipeline).
func keyedAnswers(gt model.GroupType) bool {
	return gt == model.GroupBooleanChoice || gt == model.GroupMatching
}

// normalizeAnswer trims surrounding whitespace and case-folds: upper-case for
// keyed answers, lower-case for free text.
func normalizeAnswer(s string, keyed bool) string {
	s = strings.TrimSpace(s)
	if keyed {
		return strings.ToUpper(s)
	}
	return strings.ToLower(s)
}
