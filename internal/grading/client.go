// Package grading is the boundary client for the external AI grading
// service. The engine packages a subjective submission, the service
// returns a band score plus rubric-structured feedback, and the engine
// persists that verbatim. Transient failures are marked retryable so
// the grading worker can requeue without corrupting result state.
package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

// Submission is the packaged writing/speaking content sent for grading.
type Submission struct {
	ResultID uuid.UUID       `json:"result_id"`
	Skill    model.SkillType `json:"skill"`
	Tasks    []Task          `json:"tasks"`
}

// Task pairs one section's prompt with the student's response to it.
type Task struct {
	Prompt    string   `json:"prompt"`
	Text      string   `json:"text,omitempty"`
	AudioKeys []string `json:"audio_keys,omitempty"`
}

// Report is the grading service's verdict, persisted verbatim.
type Report struct {
	Band     float64         `json:"band"`
	Feedback json.RawMessage `json:"feedback"`
}

// Client calls the grading service over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient creates a grading client. The timeout bounds every call;
// per-request contexts may shorten it further.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "grading_client").Logger(),
	}
}

// Grade submits the packaged content and returns the band + feedback.
// Network failures and 5xx responses come back as retryable; a 4xx
// means the submission itself was rejected and retrying is pointless.
func (c *Client) Grade(ctx context.Context, sub *Submission) (*Report, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/grade", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Retryable("grade", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, apperr.Retryable("grade", fmt.Errorf("grading service returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("grading service rejected submission: %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, apperr.Retryable("grade", fmt.Errorf("decode report: %w", err))
	}

	c.log.Debug().
		Str("result_id", sub.ResultID.String()).
		Float64("band", report.Band).
		Msg("Submission graded")
	return &report, nil
}
