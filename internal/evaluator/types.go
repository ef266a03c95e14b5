package evaluator

// ─── Reading / listening evaluation ─────────────────────────────────

// KeyedQuestion is one answer-key entry sent to the evaluator. AnswerKey is
// the canonical (first) acceptable answer only.
type KeyedQuestion struct {
	QuestionID string `json:"question_id"`
	AnswerKey  string `json:"answer_key"`
	Type       string `json:"type"`
}

// ModuleRequest is the evaluation request for a reading or listening attempt.
type ModuleRequest struct {
	Questions   []KeyedQuestion   `json:"questions"`
	UserAnswers map[string]string `json:"userAnswers"`
}

// ModuleEvaluation is the evaluator's verdict on a reading/listening attempt.
type ModuleEvaluation struct {
	OverallBand      float64  `json:"overall_band"`
	Module           string   `json:"module"`
	ExaminerFeedback string   `json:"examiner_feedback"`
	Improvements     []string `json:"improvements"`
	Accuracy         string   `json:"accuracy"`
}

// ─── Writing evaluation ─────────────────────────────────────────────

// WritingTask pairs a task prompt with the user's prose.
type WritingTask struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WritingRequest is the evaluation request for a writing attempt. Task1 is
// optional; Task2 is the essay task.
type WritingRequest struct {
	Task1 *WritingTask `json:"task_1"`
	Task2 *WritingTask `json:"task_2"`
}

// CriteriaScores carries the four writing assessment criteria.
type CriteriaScores struct {
	TaskResponse      float64 `json:"task_response"`
	CoherenceCohesion float64 `json:"coherence_cohesion"`
	LexicalResource   float64 `json:"lexical_resource"`
	GrammarAccuracy   float64 `json:"grammar_accuracy"`
}

// WritingMistake is one flagged error with its correction.
type WritingMistake struct {
	ErrorType   string `json:"error_type"`
	Sentence    string `json:"sentence"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
}

// TaskEvaluation is the per-task writing verdict.
type TaskEvaluation struct {
	OverallBand    float64          `json:"overall_band"`
	CriteriaScores CriteriaScores   `json:"criteria_scores"`
	WordCount      int              `json:"word_count"`
	Mistakes       []WritingMistake `json:"mistakes"`
	RefinedAnswer  string           `json:"refined_answer"`
}

// WritingEvaluation is the evaluator's verdict on a writing attempt.
type WritingEvaluation struct {
	OverallWritingBand float64 `json:"overall_writing_band"`
	Tasks              struct {
		Task1 *TaskEvaluation `json:"task_1,omitempty"`
		Task2 *TaskEvaluation `json:"task_2,omitempty"`
	} `json:"tasks"`
}
