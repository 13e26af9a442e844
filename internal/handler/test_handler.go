package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/middleware"
	"github.com/poil524/final-project-sub000/internal/model"
	"github.com/poil524/final-project-sub000/internal/response"
	"github.com/poil524/final-project-sub000/internal/service"
	"github.com/poil524/final-project-sub000/internal/validator"
)

// TestHandler handles test catalog endpoints: authoring for teachers,
// approval for admins, randomized fetch for students.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// ListTests godoc
// GET /api/v1/author/tests
// Lists tests with pagination. Admins see all; teachers only their own.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	creatorFilter := claims.UserID
	if claims.Role == service.RoleAdmin {
		creatorFilter = 0 // Show all tests
	}

	tests, pagination, err := h.testService.ListByCreator(c.Request.Context(), creatorFilter, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// CreateTest godoc
// POST /api/v1/author/tests
// Creates a new unapproved test.
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// GetTest godoc
// GET /api/v1/author/tests/:test_id
// Returns the authoring view, answer keys included.
func (h *TestHandler) GetTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	creatorID := claims.UserID
	if claims.Role == service.RoleAdmin {
		creatorID = 0
	}

	test, err := h.testService.GetForAuthor(c.Request.Context(), creatorID, testID)
	if err != nil {
		if errors.Is(err, service.ErrNotTestCreator) {
			response.Fail(c, http.StatusForbidden, response.ErrNotTestCreator)
			return
		}
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// UpdateTest godoc
// PUT /api/v1/author/tests/:test_id
// Replaces a test's content. The skill cannot change.
func (h *TestHandler) UpdateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	creatorID := claims.UserID
	if claims.Role == service.RoleAdmin {
		creatorID = 0
	}

	test, err := h.testService.Update(c.Request.Context(), creatorID, testID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotTestCreator) {
			response.Fail(c, http.StatusForbidden, response.ErrNotTestCreator)
			return
		}
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/author/tests/:test_id
func (h *TestHandler) DeleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	creatorID := claims.UserID
	if claims.Role == service.RoleAdmin {
		creatorID = 0
	}

	if err := h.testService.Delete(c.Request.Context(), creatorID, testID); err != nil {
		if errors.Is(err, service.ErrNotTestCreator) {
			response.Fail(c, http.StatusForbidden, response.ErrNotTestCreator)
			return
		}
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test deleted"})
}

// ApproveTest godoc
// POST /api/v1/admin/tests/:test_id/approve
// Makes a test visible to students and warms its cache.
func (h *TestHandler) ApproveTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Approve(c.Request.Context(), testID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test approved"})
}

// ListAvailableTests godoc
// GET /api/v1/student/tests?skill=reading
// Lists approved tests a student may take.
func (h *TestHandler) ListAvailableTests(c *gin.Context) {
	skill := model.SkillType(c.Query("skill"))
	if skill != "" && !skill.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	tests, err := h.testService.ListApprovedForStudent(c.Request.Context(), skill)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Students get catalog entries, not content.
	type entry struct {
		ID       uuid.UUID       `json:"id"`
		Name     string          `json:"name"`
		Skill    model.SkillType `json:"skill"`
		Attempts int             `json:"attempt_count"`
	}
	entries := make([]entry, len(tests))
	for i, t := range tests {
		entries[i] = entry{ID: t.ID, Name: t.Name, Skill: t.Skill, Attempts: t.AttemptCount}
	}

	response.Success(c, http.StatusOK, gin.H{"tests": entries})
}

// FetchTest godoc
// GET /api/v1/student/tests/:test_id
// Returns a fresh randomized presentation of an approved test. Every
// fetch may arrange the options differently.
func (h *TestHandler) FetchTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.testService.FetchForStudent(c.Request.Context(), testID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": view})
}
