package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/config"
	"github.com/poil524/final-project-sub000/internal/grading"
	"github.com/poil524/final-project-sub000/internal/repository"
)

const (
	GradingPollTimeout = 1 * time.Second
	GradingMaxRetries  = 5
	GradingRetryDelay  = 10 * time.Second
)

// GradingWorker consumes packaged writing/speaking submissions from the
// grading queue, calls the external grading service with a bounded
// timeout, and writes the band + feedback back onto the result.
// Transient failures requeue the job; the result row is never left in a
// half-written state.
type GradingWorker struct {
	client     *grading.Client
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	timeout    time.Duration
	log        zerolog.Logger
}

func NewGradingWorker(
	client *grading.Client,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	timeout time.Duration,
	log zerolog.Logger,
) *GradingWorker {
	return &GradingWorker{
		client:     client,
		resultRepo: resultRepo,
		rdb:        rdb,
		timeout:    timeout,
		log:        log.With().Str("component", "grading_worker").Logger(),
	}
}

// job wraps a submission with its retry budget.
type job struct {
	grading.Submission
	Attempts int `json:"attempts"`
}

func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradingWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return
		default:
			item, err := w.rdb.BLPop(ctx, GradingPollTimeout, config.WorkerKey.GradingQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var j job
			if err := json.Unmarshal([]byte(item[1]), &j); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.process(ctx, &j)
		}
	}
}

func (w *GradingWorker) process(ctx context.Context, j *job) {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	report, err := w.client.Grade(callCtx, &j.Submission)
	if err != nil {
		var re *apperr.RetryableError
		if errors.As(err, &re) {
			w.requeue(ctx, j, err)
			return
		}
		w.log.Error().Err(err).
			Str("result_id", j.ResultID.String()).
			Msg("Submission rejected by grading service, dropping")
		return
	}

	if err := w.resultRepo.SetBandFeedback(ctx, j.ResultID, report.Band, report.Feedback); err != nil {
		// The grade exists but the write failed; requeue so grading is
		// retried rather than lost.
		w.requeue(ctx, j, err)
		return
	}

	w.log.Info().
		Str("result_id", j.ResultID.String()).
		Float64("band", report.Band).
		Msg("Band and feedback persisted")
}

func (w *GradingWorker) requeue(ctx context.Context, j *job, cause error) {
	j.Attempts++
	if j.Attempts >= GradingMaxRetries {
		w.log.Error().Err(cause).
			Str("result_id", j.ResultID.String()).
			Int("attempts", j.Attempts).
			Msg("Retry budget exhausted, dropping job")
		return
	}

	w.log.Warn().Err(cause).
		Str("result_id", j.ResultID.String()).
		Int("attempts", j.Attempts).
		Msg("Transient grading failure, requeueing")

	raw, err := json.Marshal(j)
	if err != nil {
		return
	}

	// The delay runs off the consumer loop so one failing job does not
	// stall the rest of the queue. On shutdown the job is pushed back
	// immediately instead of being lost.
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(GradingRetryDelay):
		}
		pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.rdb.RPush(pushCtx, config.WorkerKey.GradingQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed")
		}
	}()
}
