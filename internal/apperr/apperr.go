// Package apperr defines the engine's domain error taxonomy. Handlers
// map these onto HTTP error codes with errors.As; services create them
// and otherwise treat them as opaque.
package apperr

import "fmt"

// ValidationError marks a malformed test or question structure.
// Nothing that fails validation is ever persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError with a formatted message.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a reference to a nonexistent resource, or one the
// caller is not allowed to see (unapproved tests look absent to
// students).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the given resource reference.
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StateConflictError marks a rejected workflow transition. Current
// carries the state the record is actually in, so a caller losing a
// race can distinguish "already there" from success.
type StateConflictError struct {
	Current string
	Msg     string
}

func (e *StateConflictError) Error() string { return e.Msg }

// StateConflict builds a StateConflictError recording the actual state.
func StateConflict(current, format string, args ...any) *StateConflictError {
	return &StateConflictError{Current: current, Msg: fmt.Sprintf(format, args...)}
}

// ScoringError marks a question whose answer key is missing an entry
// for a gradable item at scoring time. It aborts the whole submission:
// silently awarding zero would misreport the student's score.
type ScoringError struct {
	QuestionID string
	ItemID     string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("question %s: no answer key entry for item %q", e.QuestionID, e.ItemID)
}

// RetryableError wraps a transient failure from an external
// collaborator; the caller may safely retry the operation.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as transient for the named operation.
func Retryable(op string, err error) *RetryableError {
	return &RetryableError{Op: op, Err: err}
}
