package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

const uniqueViolation = "23505"

// EvaluationRepository handles evaluation data access. Status
// transitions are guarded compare-and-set updates: two concurrent
// callers racing on the same record get exactly one winner, and the
// loser learns the actual current state.
type EvaluationRepository struct {
	pool *pgxpool.Pool
}

// NewEvaluationRepository creates a new EvaluationRepository.
func NewEvaluationRepository(pool *pgxpool.Pool) *EvaluationRepository {
	return &EvaluationRepository{pool: pool}
}

// Create inserts a pending evaluation. A partial unique index on
// test_result_id (WHERE status <> 'completed') enforces the at most one
// active evaluation per result invariant; a violation surfaces as a
// state conflict, not an opaque database error.
func (r *EvaluationRepository) Create(ctx context.Context, e *model.Evaluation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO evaluations (id, student_id, test_result_id, status, requested_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.StudentID, e.TestResultID, e.Status, e.RequestedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			current, lookupErr := r.activeStatus(ctx, e.TestResultID)
			if lookupErr != nil {
				current = string(model.EvaluationPending)
			}
			return apperr.StateConflict(current,
				"test result %s already has a non-completed evaluation", e.TestResultID)
		}
		return err
	}
	return nil
}

// GetByID retrieves an evaluation.
func (r *EvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Evaluation, error) {
	e := &model.Evaluation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, test_result_id, teacher_id, status, feedback,
		        requested_at, assigned_at, completed_at
		 FROM evaluations WHERE id = $1`, id,
	).Scan(&e.ID, &e.StudentID, &e.TestResultID, &e.TeacherID, &e.Status,
		&e.Feedback, &e.RequestedAt, &e.AssignedAt, &e.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("evaluation", id.String())
		}
		return nil, err
	}
	return e, nil
}

// Assign moves a pending evaluation to assigned. The WHERE clause is
// the compare half of the compare-and-set: if the row is no longer
// pending the update touches nothing and the caller gets a state
// conflict carrying whatever the status actually is now.
func (r *EvaluationRepository) Assign(ctx context.Context, e *model.Evaluation) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE evaluations
		 SET status = $1, teacher_id = $2, assigned_at = $3
		 WHERE id = $4 AND status = $5`,
		model.EvaluationAssigned, e.TeacherID, e.AssignedAt,
		e.ID, model.EvaluationPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.conflict(ctx, e.ID, "assign")
	}
	return nil
}

// Complete moves an assigned evaluation to completed, restricted to the
// assigned teacher. Same compare-and-set shape as Assign.
func (r *EvaluationRepository) Complete(ctx context.Context, e *model.Evaluation) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE evaluations
		 SET status = $1, feedback = $2, completed_at = $3
		 WHERE id = $4 AND status = $5 AND teacher_id = $6`,
		model.EvaluationCompleted, e.Feedback, e.CompletedAt,
		e.ID, model.EvaluationAssigned, e.TeacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.conflict(ctx, e.ID, "complete")
	}
	return nil
}

// ListByStudent retrieves a student's own evaluations.
func (r *EvaluationRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Evaluation, error) {
	return r.list(ctx,
		`SELECT id, student_id, test_result_id, teacher_id, status, feedback,
		        requested_at, assigned_at, completed_at
		 FROM evaluations WHERE student_id = $1
		 ORDER BY requested_at DESC`, studentID)
}

// ListByTeacher retrieves evaluations assigned to a teacher.
func (r *EvaluationRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Evaluation, error) {
	return r.list(ctx,
		`SELECT id, student_id, test_result_id, teacher_id, status, feedback,
		        requested_at, assigned_at, completed_at
		 FROM evaluations WHERE teacher_id = $1
		 ORDER BY requested_at DESC`, teacherID)
}

// ListByStatus retrieves evaluations in a given state (admin views).
func (r *EvaluationRepository) ListByStatus(ctx context.Context, status model.EvaluationStatus) ([]model.Evaluation, error) {
	return r.list(ctx,
		`SELECT id, student_id, test_result_id, teacher_id, status, feedback,
		        requested_at, assigned_at, completed_at
		 FROM evaluations WHERE status = $1
		 ORDER BY requested_at ASC`, status)
}

func (r *EvaluationRepository) list(ctx context.Context, query string, arg interface{}) ([]model.Evaluation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		var e model.Evaluation
		if err := rows.Scan(&e.ID, &e.StudentID, &e.TestResultID, &e.TeacherID,
			&e.Status, &e.Feedback, &e.RequestedAt, &e.AssignedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// conflict rebuilds the state-conflict error for a lost compare-and-set
// by reading the row's actual status.
func (r *EvaluationRepository) conflict(ctx context.Context, id uuid.UUID, op string) error {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM evaluations WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("evaluation", id.String())
		}
		return err
	}
	return apperr.StateConflict(status, "cannot %s evaluation %s in state %s", op, id, status)
}

func (r *EvaluationRepository) activeStatus(ctx context.Context, resultID uuid.UUID) (string, error) {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM evaluations
		 WHERE test_result_id = $1 AND status <> $2`,
		resultID, model.EvaluationCompleted).Scan(&status)
	return status, err
}
