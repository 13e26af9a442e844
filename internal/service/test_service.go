package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/config"
	"github.com/poil524/final-project-sub000/internal/model"
	"github.com/poil524/final-project-sub000/internal/presentation"
	"github.com/poil524/final-project-sub000/internal/repository"
	"github.com/poil524/final-project-sub000/internal/response"
)

// Domain errors.
var (
	ErrNotTestCreator = errors.New("not the creator of this test")
	ErrSkillImmutable = errors.New("a test's skill cannot change after creation")
)

// TestService handles the test catalog: authoring, approval and the
// student-facing fetch path with its Redis fast lane.
type TestService struct {
	testRepo *repository.TestRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo: testRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// Create validates and inserts a new unapproved test.
func (s *TestService) Create(ctx context.Context, creatorID int, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		ID:        uuid.New(),
		Name:      req.Name,
		Skill:     req.Skill,
		CreatorID: creatorID,
		Sections:  req.Sections,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.testRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces a test's content wholesale after re-validating the
// whole aggregate. Only the creator (or an admin, creatorID=0) may
// edit; the skill is immutable. Editing an approved test revokes its
// approval so an admin must re-review the changed content.
func (s *TestService) Update(ctx context.Context, creatorID int, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if creatorID != 0 && existing.CreatorID != creatorID {
		return nil, ErrNotTestCreator
	}

	updated := &model.Test{
		ID:        existing.ID,
		Name:      req.Name,
		Skill:     existing.Skill,
		CreatorID: existing.CreatorID,
		Sections:  req.Sections,
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.testRepo.Update(ctx, updated); err != nil {
		return nil, err
	}

	if existing.Approved {
		if err := s.testRepo.SetApproved(ctx, id, false); err != nil {
			return nil, err
		}
		s.dropCache(ctx, id)
		s.log.Info().Str("test_id", id.String()).Msg("Approval revoked after edit")
	}
	return updated, nil
}

// Delete removes a test.
func (s *TestService) Delete(ctx context.Context, creatorID int, id uuid.UUID) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if creatorID != 0 && existing.CreatorID != creatorID {
		return ErrNotTestCreator
	}
	if err := s.testRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.dropCache(ctx, id)
	return nil
}

// GetForAuthor retrieves the authoring view of a test, answer keys
// included. Only the creator may read it; creatorID=0 skips the check
// for admins.
func (s *TestService) GetForAuthor(ctx context.Context, creatorID int, id uuid.UUID) (*model.Test, error) {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if creatorID != 0 && t.CreatorID != creatorID {
		return nil, ErrNotTestCreator
	}
	return t, nil
}

// ListByCreator retrieves tests with pagination. creatorID=0 lists all.
func (s *TestService) ListByCreator(ctx context.Context, creatorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	tests, total, err := s.testRepo.ListByCreatorPaginated(ctx, creatorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return tests, pagination, nil
}

// Approve makes a test visible to students and warms its payload cache.
func (s *TestService) Approve(ctx context.Context, id uuid.UUID) error {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Approved {
		return apperr.StateConflict("approved", "test %s is already approved", id)
	}
	if err := s.testRepo.SetApproved(ctx, id, true); err != nil {
		return err
	}
	t.Approved = true
	if err := s.warmCache(ctx, t); err != nil {
		s.log.Warn().Err(err).Str("test_id", id.String()).Msg("Cache warm failed")
	}
	s.log.Info().Str("test_id", id.String()).Msg("Test approved")
	return nil
}

// ListApprovedForStudent lists the tests a student may take. Unapproved
// tests are filtered here, server-side, with no client involvement.
func (s *TestService) ListApprovedForStudent(ctx context.Context, skill model.SkillType) ([]model.Test, error) {
	tests, err := s.testRepo.ListApproved(ctx, skill)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}
	return tests, nil
}

// FetchForStudent returns a fresh randomized presentation of an
// approved test: cached canonical snapshot if available, and a new
// arrangement on every call. An unapproved test is indistinguishable
// from a missing one.
func (s *TestService) FetchForStudent(ctx context.Context, id uuid.UUID) (*presentation.TestView, error) {
	t, err := s.cachedTest(ctx, id)
	if err != nil {
		t, err = s.testRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.Approved {
			if warmErr := s.warmCache(ctx, t); warmErr != nil {
				s.log.Warn().Err(warmErr).Str("test_id", id.String()).Msg("Lazy cache warm failed")
			}
		}
	}
	if !t.Approved {
		return nil, apperr.NotFound("test", id.String())
	}
	return presentation.StudentView(t), nil
}

// PrewarmAllCaches loads all approved tests into Redis on startup.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListApproved(ctx, "")
	if err != nil {
		return fmt.Errorf("list approved tests: %w", err)
	}
	if len(tests) == 0 {
		s.log.Info().Msg("No approved tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		if err := s.warmCache(ctx, &tests[i]); err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(tests)).Msg("Prewarming complete")
	return nil
}

// warmCache stores the canonical test snapshot. The cache holds the
// authored arrangement with answer keys and never leaves the server;
// students only ever receive the per-fetch view built from it.
func (s *TestService) warmCache(ctx context.Context, t *model.Test) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.TestPayloadKey(t.ID.String()), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}
	return nil
}

func (s *TestService) cachedTest(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(id.String())).Bytes()
	if err != nil {
		return nil, err
	}
	var t model.Test
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TestService) dropCache(ctx context.Context, id uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.TestPayloadKey(id.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", id.String()).Msg("Cache drop failed")
	}
}
