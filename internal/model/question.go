package model

import (
	"encoding/json"
	"strings"
)

// Question is a single gradable item. Order is 1-based and globally unique
// within a module; it defines question numbering, navigation and slot binding.
type Question struct {
	ID           string   `json:"id"`
	Order        int      `json:"order"`
	Text         string   `json:"question_text"`
	Type         string   `json:"question_type,omitempty"`
	Options      []Option `json:"options,omitempty"`
	// CorrectAnswer is itself a JSON-encoded array of acceptable answer
	// strings. Malformed payloads degrade to a single raw-string answer.
	CorrectAnswer string `json:"correct_answer"`
}

// AcceptableAnswers decodes the answer key into its list of acceptable
// variants. If the stored value is not a JSON string array, the raw string is
// treated as the sole acceptable answer. Never returns an error: a missing or
// malformed key must not block grading of other questions.
func (q *Question) AcceptableAnswers() []string {
	raw := strings.TrimSpace(q.CorrectAnswer)
	if raw == "" {
		return nil
	}

	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []string{raw}
}

// CanonicalAnswer returns the first acceptable answer: the singular key used
// when persisting an answer-key payload or calling the external evaluator.
// Local scoring accepts any variant; this canonical form is deliberately
// narrower.
func (q *Question) CanonicalAnswer() string {
	answers := q.AcceptableAnswers()
	if len(answers) == 0 {
		return ""
	}
	return answers[0]
}
