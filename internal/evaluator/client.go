package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client calls the external AI evaluation service. The service is a black
// box: request in, band score and structured feedback out.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an evaluator Client.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "evaluator_client").Logger(),
	}
}

// EvaluateModule scores a reading or listening attempt remotely.
func (c *Client) EvaluateModule(ctx context.Context, req *ModuleRequest) (*ModuleEvaluation, error) {
	var out ModuleEvaluation
	if err := c.post(ctx, "/evaluate/module", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateWriting scores a writing attempt remotely.
func (c *Client) EvaluateWriting(ctx context.Context, req *WritingRequest) (*WritingEvaluation, error) {
	var out WritingEvaluation
	if err := c.post(ctx, "/evaluate/writing", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("evaluator call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("evaluator returned %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug().
		Str("path", path).
		Dur("elapsed", time.Since(start)).
		Msg("Evaluation completed")
	return nil
}
