package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/config"
	"github.com/poil524/final-project-sub000/internal/model"
	"github.com/poil524/final-project-sub000/internal/repository"
)

// EvaluationService drives the human-evaluation workflow:
// student request → admin assignment → teacher completion. Transitions
// never move backward, and each one is announced on the evaluation
// events channel for the admin live stream.
type EvaluationService struct {
	evalRepo   *repository.EvaluationRepository
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(
	evalRepo *repository.EvaluationRepository,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *EvaluationService {
	return &EvaluationService{
		evalRepo:   evalRepo,
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "evaluation_service").Logger(),
	}
}

// EvaluationEvent is published on every workflow transition.
type EvaluationEvent struct {
	EvaluationID uuid.UUID              `json:"evaluation_id"`
	ResultID     uuid.UUID              `json:"result_id"`
	Status       model.EvaluationStatus `json:"status"`
	At           time.Time              `json:"at"`
}

// Request creates a pending evaluation for a subjective result owned by
// the requesting student. A result with a non-completed evaluation
// already open rejects the duplicate with a state conflict.
func (s *EvaluationService) Request(ctx context.Context, studentID int, resultID uuid.UUID) (*model.Evaluation, error) {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result.StudentID != studentID {
		return nil, apperr.NotFound("test result", resultID.String())
	}
	if result.Skill.Objective() {
		return nil, apperr.Validation("only writing and speaking results can be evaluated, got %s", result.Skill)
	}

	eval := model.NewEvaluation(studentID, resultID, time.Now())
	if err := s.evalRepo.Create(ctx, eval); err != nil {
		return nil, err
	}

	s.publish(ctx, eval)
	s.log.Info().
		Str("evaluation_id", eval.ID.String()).
		Str("result_id", resultID.String()).
		Msg("Evaluation requested")
	return eval, nil
}

// Assign gives a pending evaluation to a teacher. The model guard
// catches stale reads; the repository's compare-and-set settles races
// between concurrent administrators with exactly one winner.
func (s *EvaluationService) Assign(ctx context.Context, evalID uuid.UUID, teacherID int) (*model.Evaluation, error) {
	eval, err := s.evalRepo.GetByID(ctx, evalID)
	if err != nil {
		return nil, err
	}
	if err := eval.Assign(teacherID, time.Now()); err != nil {
		return nil, err
	}
	if err := s.evalRepo.Assign(ctx, eval); err != nil {
		return nil, err
	}

	s.publish(ctx, eval)
	s.log.Info().
		Str("evaluation_id", evalID.String()).
		Int("teacher_id", teacherID).
		Msg("Evaluation assigned")
	return eval, nil
}

// Complete finishes an assigned evaluation with the teacher's feedback.
// Only the assigned teacher may complete it, and only from assigned.
func (s *EvaluationService) Complete(ctx context.Context, evalID uuid.UUID, teacherID int, feedback json.RawMessage) (*model.Evaluation, error) {
	eval, err := s.evalRepo.GetByID(ctx, evalID)
	if err != nil {
		return nil, err
	}
	if err := eval.Complete(teacherID, feedback, time.Now()); err != nil {
		return nil, err
	}
	if err := s.evalRepo.Complete(ctx, eval); err != nil {
		return nil, err
	}

	s.publish(ctx, eval)
	s.log.Info().
		Str("evaluation_id", evalID.String()).
		Int("teacher_id", teacherID).
		Msg("Evaluation completed")
	return eval, nil
}

// ListForStudent returns a student's own evaluations.
func (s *EvaluationService) ListForStudent(ctx context.Context, studentID int) ([]model.Evaluation, error) {
	return orEmpty(s.evalRepo.ListByStudent(ctx, studentID))
}

// ListForTeacher returns the evaluations assigned to a teacher.
func (s *EvaluationService) ListForTeacher(ctx context.Context, teacherID int) ([]model.Evaluation, error) {
	return orEmpty(s.evalRepo.ListByTeacher(ctx, teacherID))
}

// ListByStatus returns evaluations in one state, oldest first, for the
// admin queue views.
func (s *EvaluationService) ListByStatus(ctx context.Context, status model.EvaluationStatus) ([]model.Evaluation, error) {
	switch status {
	case model.EvaluationPending, model.EvaluationAssigned, model.EvaluationCompleted:
	default:
		return nil, apperr.Validation("unknown evaluation status %q", status)
	}
	return orEmpty(s.evalRepo.ListByStatus(ctx, status))
}

func (s *EvaluationService) publish(ctx context.Context, eval *model.Evaluation) {
	raw, err := json.Marshal(EvaluationEvent{
		EvaluationID: eval.ID,
		ResultID:     eval.TestResultID,
		Status:       eval.Status,
		At:           time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.EvaluationEventsChannel(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Evaluation event publish failed")
	}
}

func orEmpty(evals []model.Evaluation, err error) ([]model.Evaluation, error) {
	if err != nil {
		return nil, err
	}
	if evals == nil {
		evals = []model.Evaluation{}
	}
	return evals, nil
}
