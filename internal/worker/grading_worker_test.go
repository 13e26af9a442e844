package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/grading"
)

func newTestWorker() *GradingWorker {
	// Unroutable address; requeue tests only observe control flow, the
	// push itself is expected to fail in the background.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	return NewGradingWorker(nil, nil, rdb, time.Second, zerolog.Nop())
}

func TestRequeueDoesNotBlockConsumer(t *testing.T) {
	w := newTestWorker()
	j := &job{Submission: grading.Submission{ResultID: uuid.New()}}

	start := time.Now()
	w.requeue(context.Background(), j, errors.New("dial tcp: connection refused"))
	elapsed := time.Since(start)

	if elapsed >= GradingRetryDelay {
		t.Fatalf("requeue held the consumer for %v", elapsed)
	}
	if j.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", j.Attempts)
	}
}

func TestRequeueDropsAfterRetryBudget(t *testing.T) {
	w := newTestWorker()
	j := &job{
		Submission: grading.Submission{ResultID: uuid.New()},
		Attempts:   GradingMaxRetries - 1,
	}

	start := time.Now()
	w.requeue(context.Background(), j, errors.New("dial tcp: connection refused"))

	if time.Since(start) >= GradingRetryDelay {
		t.Fatal("dropping an exhausted job must not wait out the retry delay")
	}
	if j.Attempts != GradingMaxRetries {
		t.Errorf("attempts = %d, want %d", j.Attempts, GradingMaxRetries)
	}
}
