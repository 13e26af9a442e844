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

// TestRepository handles test aggregate data access. Sections (with
// their questions and answer keys) are stored as one JSONB document so
// a test is always read as a single consistent snapshot.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test with its full section tree.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	var sections []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, skill, creator_id, approved, attempt_count, sections, created_at, updated_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Skill, &t.CreatorID, &t.Approved, &t.AttemptCount,
		&sections, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("test", id.String())
		}
		return nil, err
	}
	if err := json.Unmarshal(sections, &t.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	return t, nil
}

// Create inserts a new test aggregate.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (id, name, skill, creator_id, approved, sections)
		 VALUES ($1, $2, $3, $4, false, $5)
		 RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Skill, t.CreatorID, sections,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Update replaces a test's name and section tree. The skill column is
// deliberately not in the SET list: it is immutable after creation.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET name = $1, sections = $2, updated_at = NOW() WHERE id = $3`,
		t.Name, sections, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("test", t.ID.String())
	}
	return nil
}

// Delete removes a test.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("test", id.String())
	}
	return nil
}

// SetApproved flips the approval flag.
func (r *TestRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET approved = $1, updated_at = NOW() WHERE id = $2`,
		approved, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("test", id.String())
	}
	return nil
}

// IncrementAttempts bumps the attempt counter after a submission.
func (r *TestRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET attempt_count = attempt_count + 1 WHERE id = $1`, id)
	return err
}

// ListByCreatorPaginated retrieves tests filtered by creator with
// pagination. Pass creatorID=0 to list all tests (admin).
func (r *TestRepository) ListByCreatorPaginated(ctx context.Context, creatorID, limit, offset int) ([]model.Test, int, error) {
	countQuery := `SELECT COUNT(*) FROM tests`
	var countArgs []interface{}
	if creatorID > 0 {
		countQuery += ` WHERE creator_id = $1`
		countArgs = append(countArgs, creatorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, skill, creator_id, approved, attempt_count, sections, created_at, updated_at
	          FROM tests`
	var args []interface{}
	if creatorID > 0 {
		query += ` WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, creatorID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	tests, err := r.queryTests(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

// ListApproved returns approved tests, optionally filtered by skill.
// This is the only listing students ever see: the approval filter is
// enforced here, server-side, unconditionally.
func (r *TestRepository) ListApproved(ctx context.Context, skill model.SkillType) ([]model.Test, error) {
	query := `SELECT id, name, skill, creator_id, approved, attempt_count, sections, created_at, updated_at
	          FROM tests WHERE approved = true`
	var args []interface{}
	if skill != "" {
		query += ` AND skill = $1`
		args = append(args, skill)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryTests(ctx, query, args...)
}

func (r *TestRepository) queryTests(ctx context.Context, query string, args ...interface{}) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		var sections []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Skill, &t.CreatorID, &t.Approved,
			&t.AttemptCount, &sections, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sections, &t.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
