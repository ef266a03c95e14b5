package model

import (
	"encoding/json"
	"strings"
)

// ModuleFeedback is the structured evaluator feedback for a reading or
// listening attempt.
type ModuleFeedback struct {
	OverallBand      float64  `json:"overall_band,omitempty"`
	Module           string   `json:"module,omitempty"`
	ExaminerFeedback string   `json:"examiner_feedback"`
	Improvements     []string `json:"improvements"`
	Accuracy         string   `json:"accuracy,omitempty"`
}

// feedbackEnvelope matches the legacy persisted shape where the blob is
// nested under data.feedback instead of stored flat.
type feedbackEnvelope struct {
	Data struct {
		Feedback json.RawMessage `json:"feedback"`
	} `json:"data"`
}

const placeholderFeedback = "Detailed feedback is not available for this attempt."

// DecodeFeedback reconstructs structured feedback from a persisted blob.
// Older sessions lack structured fields or wrap them under data.feedback;
// both shapes are tolerated and a minimal placeholder is synthesized when
// nothing usable is present. Never fails.
func DecodeFeedback(raw json.RawMessage) ModuleFeedback {
	fb, ok := tryDecodeFeedback(raw)
	if ok {
		return fb
	}

	// Legacy envelope: {"data": {"feedback": {...}}}.
	var env feedbackEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data.Feedback) > 0 {
		if fb, ok := tryDecodeFeedback(env.Data.Feedback); ok {
			return fb
		}
	}

	return ModuleFeedback{
		ExaminerFeedback: placeholderFeedback,
		Improvements:     []string{},
	}
}

func tryDecodeFeedback(raw json.RawMessage) (ModuleFeedback, bool) {
	if len(raw) == 0 {
		return ModuleFeedback{}, false
	}

	var fb ModuleFeedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return ModuleFeedback{}, false
	}
	if strings.TrimSpace(fb.ExaminerFeedback) == "" && fb.OverallBand == 0 && len(fb.Improvements) == 0 {
		return ModuleFeedback{}, false
	}
	if fb.Improvements == nil {
		fb.Improvements = []string{}
	}
	return fb, true
}
