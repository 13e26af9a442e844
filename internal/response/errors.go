package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication / authorization ───────────────────────────────
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentOnly       ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherOnly       ErrCode = "TEACHER_ACCESS_ONLY"
	ErrAdminOnly         ErrCode = "ADMIN_ACCESS_ONLY"
	ErrNotTestCreator    ErrCode = "NOT_TEST_CREATOR"
	ErrNotAssignedGrader ErrCode = "NOT_ASSIGNED_GRADER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrSkillImmutable ErrCode = "SKILL_IMMUTABLE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment ────────────────────────────────────────────────────
	ErrTestNotApproved    ErrCode = "TEST_NOT_APPROVED"
	ErrScoringFailed      ErrCode = "SCORING_FAILED"
	ErrStateConflict      ErrCode = "STATE_CONFLICT"
	ErrNotEvaluable       ErrCode = "RESULT_NOT_EVALUABLE"
	ErrGradingUnavailable ErrCode = "GRADING_UNAVAILABLE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrMediaSignature ErrCode = "MEDIA_SIGNATURE_INVALID"
	ErrMediaExpired   ErrCode = "MEDIA_URL_EXPIRED"

	// ─── Rate limiting / server ────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentOnly:
		return "This resource is restricted to students."
	case ErrTeacherOnly:
		return "This resource is restricted to teachers."
	case ErrAdminOnly:
		return "This resource is restricted to administrators."
	case ErrNotTestCreator:
		return "You are not the creator of this test."
	case ErrNotAssignedGrader:
		return "This evaluation is assigned to a different teacher."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrSkillImmutable:
		return "The skill of a test cannot be changed after creation."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrTestNotApproved:
		return "This test has not been approved for students yet."
	case ErrScoringFailed:
		return "The submission could not be scored; no result was saved."
	case ErrStateConflict:
		return "The operation conflicts with the record's current state."
	case ErrNotEvaluable:
		return "Only writing and speaking results can be sent for evaluation."
	case ErrGradingUnavailable:
		return "The grading service is temporarily unavailable. Please try again."
	case ErrMediaSignature:
		return "The media URL signature is invalid."
	case ErrMediaExpired:
		return "The media URL has expired."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
