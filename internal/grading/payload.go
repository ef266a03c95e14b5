package grading

import (
	"github.com/prepline/prepline-backend/internal/evaluator"
	"github.com/prepline/prepline-backend/internal/model"
)

// BuildModuleRequest constructs the external-evaluator payload for a reading
// or listening attempt. Each answer-key entry carries only the canonical
// first acceptable answer; the local widening to any variant is not exported.
func BuildModuleRequest(m *model.Module, answers map[string]string) *evaluator.ModuleRequest {
	req := &evaluator.ModuleRequest{
		UserAnswers: make(map[string]string, len(answers)),
	}

	for gi := range m.Groups {
		group := &m.Groups[gi]
		for qi := range group.Questions {
			q := &group.Questions[qi]
			req.Questions = append(req.Questions, evaluator.KeyedQuestion{
				QuestionID: q.ID,
				AnswerKey:  q.CanonicalAnswer(),
				Type:       string(group.Type),
			})
			if v, ok := answers[q.ID]; ok {
				req.UserAnswers[q.ID] = v
			}
		}
	}
	return req
}

// BuildWritingRequest constructs the external-evaluator payload for a writing
// attempt. The first two questions of the module, in order, are task 1 and
// task 2; a missing or unanswered task 1 is sent as null.
func BuildWritingRequest(m *model.Module, answers map[string]string) *evaluator.WritingRequest {
	var tasks []*evaluator.WritingTask
	for gi := range m.Groups {
		group := &m.Groups[gi]
		for qi := range group.Questions {
			q := &group.Questions[qi]
			tasks = append(tasks, &evaluator.WritingTask{
				Question: q.Text,
				Answer:   answers[q.ID],
			})
		}
	}

	req := &evaluator.WritingRequest{}
	if len(tasks) > 0 && tasks[0].Answer != "" {
		req.Task1 = tasks[0]
	}
	if len(tasks) > 1 {
		req.Task2 = tasks[1]
	} else if len(tasks) == 1 && req.Task1 == nil {
		// Single-task content: treat the sole prompt as the essay task.
		req.Task2 = tasks[0]
	}
	return req
}
