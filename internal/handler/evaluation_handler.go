package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/middleware"
	"github.com/poil524/final-project-sub000/internal/model"
	"github.com/poil524/final-project-sub000/internal/response"
	"github.com/poil524/final-project-sub000/internal/service"
	"github.com/poil524/final-project-sub000/internal/validator"
)

// EvaluationHandler handles the human-evaluation workflow endpoints.
type EvaluationHandler struct {
	evaluationService *service.EvaluationService
}

// NewEvaluationHandler creates a new EvaluationHandler.
func NewEvaluationHandler(evaluationService *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService}
}

// RequestEvaluation godoc
// POST /api/v1/student/results/:result_id/evaluations
// Opens a pending evaluation on a writing/speaking result.
func (h *EvaluationHandler) RequestEvaluation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	eval, err := h.evaluationService.Request(c.Request.Context(), claims.UserID, resultID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"evaluation": eval})
}

// AssignEvaluation godoc
// POST /api/v1/admin/evaluations/:evaluation_id/assign
// Assigns a pending evaluation to a teacher. Exactly one of two racing
// administrators wins; the other receives a state conflict.
func (h *EvaluationHandler) AssignEvaluation(c *gin.Context) {
	evalID, err := uuid.Parse(c.Param("evaluation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AssignEvaluationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eval, err := h.evaluationService.Assign(c.Request.Context(), evalID, req.TeacherID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"evaluation": eval})
}

// CompleteEvaluation godoc
// POST /api/v1/author/evaluations/:evaluation_id/complete
// Finishes an assigned evaluation with rubric feedback.
func (h *EvaluationHandler) CompleteEvaluation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	evalID, err := uuid.Parse(c.Param("evaluation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CompleteEvaluationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eval, err := h.evaluationService.Complete(c.Request.Context(), evalID, claims.UserID, req.Feedback)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"evaluation": eval})
}

// ListMyEvaluations godoc
// GET /api/v1/student/evaluations
func (h *EvaluationHandler) ListMyEvaluations(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	evals, err := h.evaluationService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"evaluations": evals})
}

// ListAssignedEvaluations godoc
// GET /api/v1/author/evaluations
func (h *EvaluationHandler) ListAssignedEvaluations(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	evals, err := h.evaluationService.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"evaluations": evals})
}

// ListEvaluationQueue godoc
// GET /api/v1/admin/evaluations?status=pending
func (h *EvaluationHandler) ListEvaluationQueue(c *gin.Context) {
	status := model.EvaluationStatus(c.DefaultQuery("status", string(model.EvaluationPending)))

	evals, err := h.evaluationService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"evaluations": evals})
}
