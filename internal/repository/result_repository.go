package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

// ResultRepository handles test result data access. Results are
// append-mostly: created once per attempt, amended only by the grading
// integration writing band/feedback back.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a new result.
func (r *ResultRepository) Create(ctx context.Context, res *model.TestResult) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	responses, err := json.Marshal(res.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO test_results
		   (id, student_id, test_id, test_name, skill, score, total, band, feedback, answers, responses)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		res.ID, res.StudentID, res.TestID, res.TestName, res.Skill,
		res.Score, res.Total, res.Band, res.Feedback, answers, responses,
	).Scan(&res.CreatedAt)
}

// GetByID retrieves a result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	res := &model.TestResult{}
	var answers, responses []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, test_id, test_name, skill, score, total, band, feedback, answers, responses, created_at
		 FROM test_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.StudentID, &res.TestID, &res.TestName, &res.Skill,
		&res.Score, &res.Total, &res.Band, &res.Feedback, &answers, &responses, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("test result", id.String())
		}
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &res.Responses); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
	}
	return res, nil
}

// ListByStudent retrieves a student's results, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.TestResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, test_id, test_name, skill, score, total, band, created_at
		 FROM test_results WHERE student_id = $1
		 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TestResult
	for rows.Next() {
		var res model.TestResult
		if err := rows.Scan(&res.ID, &res.StudentID, &res.TestID, &res.TestName,
			&res.Skill, &res.Score, &res.Total, &res.Band, &res.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// SetBandFeedback writes the grading integration's band and rubric
// feedback onto a subjective result.
func (r *ResultRepository) SetBandFeedback(ctx context.Context, id uuid.UUID, band float64, feedback json.RawMessage) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_results SET band = $1, feedback = $2 WHERE id = $3`,
		band, feedback, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("test result", id.String())
	}
	return nil
}
