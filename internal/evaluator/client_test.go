package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateModule(t *testing.T) {
	var gotPath string
	var gotReq ModuleRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ModuleEvaluation{
			OverallBand:      7.5,
			Module:           "reading",
			ExaminerFeedback: "Solid grasp of detail questions.",
			Improvements:     []string{"Watch paraphrased headings."},
			Accuracy:         "11/13",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	eval, err := c.EvaluateModule(context.Background(), &ModuleRequest{
		Questions: []KeyedQuestion{
			{QuestionID: "q1", AnswerKey: "blue", Type: "free_text"},
		},
		UserAnswers: map[string]string{"q1": "navy"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/evaluate/module", gotPath)
	assert.Equal(t, "blue", gotReq.Questions[0].AnswerKey)
	assert.Equal(t, 7.5, eval.OverallBand)
	assert.Equal(t, []string{"Watch paraphrased headings."}, eval.Improvements)
}

func TestEvaluateWriting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/evaluate/writing", r.URL.Path)

		var req WritingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Task1)
		require.NotNil(t, req.Task2)

		resp := WritingEvaluation{OverallWritingBand: 6.5}
		resp.Tasks.Task2 = &TaskEvaluation{
			OverallBand: 6.5,
			WordCount:   263,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	eval, err := c.EvaluateWriting(context.Background(), &WritingRequest{
		Task2: &WritingTask{Question: "Discuss both views.", Answer: "Some people argue..."},
	})

	require.NoError(t, err)
	assert.Equal(t, 6.5, eval.OverallWritingBand)
	require.NotNil(t, eval.Tasks.Task2)
	assert.Equal(t, 263, eval.Tasks.Task2.WordCount)
}

func TestEvaluateModuleNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	_, err := c.EvaluateModule(context.Background(), &ModuleRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestEvaluateModuleContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.EvaluateModule(ctx, &ModuleRequest{})
	require.Error(t, err)
}
