package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"
	ErrSessionActive ErrCode = "SESSION_ALREADY_ACTIVE"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"

	// ─── Session engine ────────────────────────────────────────────────
	ErrQuestionLocked   ErrCode = "QUESTION_LOCKED"
	ErrSessionClosed    ErrCode = "SESSION_CLOSED"
	ErrAnswerRequired   ErrCode = "ANSWER_REQUIRED"
	ErrLoadFailure      ErrCode = "LOAD_FAILURE"
	ErrEmptyQuestionSet ErrCode = "EMPTY_QUESTION_SET"
	ErrSubmissionFailed ErrCode = "SUBMISSION_FAILURE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrSessionActive:
		return "Another assessment session is already active for this candidate."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrSessionNotFound:
		return "No active session found for this ID."

	// ─── Session engine ────────────────────────────────────────────────
	case ErrQuestionLocked:
		return "This question's time has expired and it can no longer be opened."
	case ErrSessionClosed:
		return "This session is no longer accepting interaction."
	case ErrAnswerRequired:
		return "An answer is required before moving to the next question."
	case ErrLoadFailure:
		return "The question set could not be loaded."
	case ErrEmptyQuestionSet:
		return "The assessment contains no questions."
	case ErrSubmissionFailed:
		return "Submission failed. Your answers are preserved; please retry."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
