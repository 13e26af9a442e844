package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/config"
	"github.com/poil524/final-project-sub000/internal/grading"
	"github.com/poil524/final-project-sub000/internal/model"
	"github.com/poil524/final-project-sub000/internal/repository"
	"github.com/poil524/final-project-sub000/internal/scoring"
)

// SubmissionService turns a submitted attempt into exactly one
// TestResult. Objective skills are scored synchronously against a
// single answer-key snapshot; subjective skills are packaged onto the
// grading queue and their band arrives asynchronously.
type SubmissionService struct {
	testRepo   *repository.TestRepository
	resultRepo *repository.ResultRepository
	registry   *scoring.Registry
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	registry *scoring.Registry,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		testRepo:   testRepo,
		resultRepo: resultRepo,
		registry:   registry,
		rdb:        rdb,
		log:        log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit processes one attempt. The test is read once from PostgreSQL
// and every question is scored against that snapshot: a concurrent key
// edit can affect the next submission, never the middle of this one.
// Resubmission appends: each completed attempt is its own result.
func (s *SubmissionService) Submit(ctx context.Context, studentID int, testID uuid.UUID, req *model.SubmitRequest) (*model.TestResult, error) {
	t, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	// Unapproved tests are invisible to students, submissions included.
	if !t.Approved {
		return nil, apperr.NotFound("test", testID.String())
	}

	var result *model.TestResult
	if t.Skill.Objective() {
		result, err = s.scoreObjective(t, studentID, req.Answers)
	} else {
		result, err = s.packageSubjective(t, studentID, req.Responses)
	}
	if err != nil {
		return nil, err
	}

	if err := s.resultRepo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}
	if err := s.testRepo.IncrementAttempts(ctx, testID); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Attempt counter bump failed")
	}

	if !t.Skill.Objective() {
		if err := s.enqueueGrading(ctx, t, result); err != nil {
			s.log.Error().Err(err).Str("result_id", result.ID.String()).Msg("Grading enqueue failed")
		}
	}

	s.log.Info().
		Str("test_id", testID.String()).
		Int("student_id", studentID).
		Int("score", result.Score).
		Int("total", result.Total).
		Msg("Submission processed")
	return result, nil
}

func (s *SubmissionService) scoreObjective(t *model.Test, studentID int, answers model.AnswerMap) (*model.TestResult, error) {
	ts, err := scoring.ScoreTest(s.registry, t, answers)
	if err != nil {
		return nil, err
	}
	return &model.TestResult{
		ID:        uuid.New(),
		StudentID: studentID,
		TestID:    t.ID,
		TestName:  t.Name,
		Skill:     t.Skill,
		Score:     ts.Score,
		Total:     ts.Total,
		Answers:   answers,
	}, nil
}

func (s *SubmissionService) packageSubjective(t *model.Test, studentID int, responses []model.TaskResponse) (*model.TestResult, error) {
	if len(responses) == 0 {
		return nil, apperr.Validation("%s submission requires at least one task response", t.Skill)
	}
	for _, resp := range responses {
		if resp.Section < 0 || resp.Section >= len(t.Sections) {
			return nil, apperr.Validation("task response references nonexistent section %d", resp.Section)
		}
		if resp.Text == "" && len(resp.AudioKeys) == 0 {
			return nil, apperr.Validation("task response for section %d is empty", resp.Section)
		}
	}
	// Band and feedback stay empty until the grading integration
	// writes them back.
	return &model.TestResult{
		ID:        uuid.New(),
		StudentID: studentID,
		TestID:    t.ID,
		TestName:  t.Name,
		Skill:     t.Skill,
		Responses: responses,
	}, nil
}

// enqueueGrading pushes the packaged submission onto the grading queue
// consumed by the grading worker.
func (s *SubmissionService) enqueueGrading(ctx context.Context, t *model.Test, result *model.TestResult) error {
	sub := grading.Submission{
		ResultID: result.ID,
		Skill:    result.Skill,
	}
	for _, resp := range result.Responses {
		sub.Tasks = append(sub.Tasks, grading.Task{
			Prompt:    t.Sections[resp.Section].TaskPrompt,
			Text:      resp.Text,
			AudioKeys: resp.AudioKeys,
		})
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.GradingQueue, raw).Err()
}

// GetResult retrieves a result, restricted to its owner.
func (s *SubmissionService) GetResult(ctx context.Context, studentID int, id uuid.UUID) (*model.TestResult, error) {
	res, err := s.resultRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.StudentID != studentID {
		return nil, apperr.NotFound("test result", id.String())
	}
	return res, nil
}

// ListResults retrieves a student's own results.
func (s *SubmissionService) ListResults(ctx context.Context, studentID int) ([]model.TestResult, error) {
	results, err := s.resultRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.TestResult{}
	}
	return results, nil
}
