package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/apperr"
)

// EvaluationStatus enumerates the evaluation workflow states.
// Transitions only ever move forward: pending → assigned → completed.
type EvaluationStatus string

const (
	EvaluationPending   EvaluationStatus = "pending"
	EvaluationAssigned  EvaluationStatus = "assigned"
	EvaluationCompleted EvaluationStatus = "completed"
)

// Evaluation is a student's request for human review of a writing or
// speaking result. It records who evaluated what and when; completed
// evaluations are a permanent audit trail and are never mutated again.
type Evaluation struct {
	ID           uuid.UUID        `json:"id"`
	StudentID    int              `json:"student_id"`
	TestResultID uuid.UUID        `json:"test_result_id"`
	TeacherID    *int             `json:"teacher_id,omitempty"`
	Status       EvaluationStatus `json:"status"`
	Feedback     json.RawMessage  `json:"feedback,omitempty"`
	RequestedAt  time.Time        `json:"requested_at"`
	AssignedAt   *time.Time       `json:"assigned_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// NewEvaluation builds the initial pending record for a result.
func NewEvaluation(studentID int, resultID uuid.UUID, now time.Time) *Evaluation {
	return &Evaluation{
		ID:           uuid.New(),
		StudentID:    studentID,
		TestResultID: resultID,
		Status:       EvaluationPending,
		RequestedAt:  now,
	}
}

// Assign moves the evaluation from pending to assigned. Any other
// source state is a state conflict, reported with the actual status so
// callers can tell "already assigned" apart from success.
func (e *Evaluation) Assign(teacherID int, now time.Time) error {
	if e.Status != EvaluationPending {
		return apperr.StateConflict(string(e.Status), "evaluation %s is %s, expected pending", e.ID, e.Status)
	}
	e.Status = EvaluationAssigned
	e.TeacherID = &teacherID
	e.AssignedAt = &now
	return nil
}

// Complete moves the evaluation from assigned to completed. Only the
// assigned teacher may complete it; completing straight from pending is
// invalid.
func (e *Evaluation) Complete(teacherID int, feedback json.RawMessage, now time.Time) error {
	if e.Status != EvaluationAssigned {
		return apperr.StateConflict(string(e.Status), "evaluation %s is %s, expected assigned", e.ID, e.Status)
	}
	if e.TeacherID == nil || *e.TeacherID != teacherID {
		return apperr.StateConflict(string(e.Status), "evaluation %s is assigned to a different teacher", e.ID)
	}
	e.Status = EvaluationCompleted
	e.Feedback = feedback
	e.CompletedAt = &now
	return nil
}

// AssignEvaluationRequest is the admin payload for assigning a teacher.
type AssignEvaluationRequest struct {
	TeacherID int `json:"teacher_id" binding:"required,min=1"`
}

// CompleteEvaluationRequest is the teacher payload for finishing an
// evaluation with rubric-structured feedback.
type CompleteEvaluationRequest struct {
	Feedback json.RawMessage `json:"feedback" binding:"required"`
}
