package grading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

func testSubmission() *Submission {
	return &Submission{
		ResultID: uuid.New(),
		Skill:    model.SkillWriting,
		Tasks:    []Task{{Prompt: "Describe the chart.", Text: "The chart shows..."}},
	}
}

func TestGradeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/grade" {
			t.Errorf("path = %q, want /v1/grade", r.URL.Path)
		}
		var sub Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		json.NewEncoder(w).Encode(Report{Band: 6.5, Feedback: json.RawMessage(`{"task_achievement":"adequate"}`)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	report, err := c.Grade(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if report.Band != 6.5 {
		t.Errorf("Band = %v, want 6.5", report.Band)
	}
}

func TestGradeServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Grade(context.Background(), testSubmission())
	var re *apperr.RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RetryableError", err)
	}
}

func TestGradeRejectionIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Grade(context.Background(), testSubmission())
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	var re *apperr.RetryableError
	if errors.As(err, &re) {
		t.Fatal("4xx rejection must not be retryable")
	}
}

func TestGradeNetworkFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	_, err := c.Grade(context.Background(), testSubmission())
	var re *apperr.RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RetryableError", err)
	}
}
