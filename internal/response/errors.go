package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Test-taking ───────────────────────────────────────────────────
	ErrTestNotFound      ErrCode = "TEST_NOT_FOUND"
	ErrModuleNotFound    ErrCode = "MODULE_NOT_FOUND"
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrEvaluationFailed  ErrCode = "EVALUATION_FAILED"
	ErrResultSaveFailed  ErrCode = "RESULT_SAVE_FAILED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "Resource not found."
	case ErrActionForbidden:
		return "This action is not allowed."
	case ErrTestNotFound:
		return "This test could not be found."
	case ErrModuleNotFound:
		return "This test does not contain the requested module."
	case ErrSessionNotFound:
		return "This result could not be found."
	case ErrEvaluationFailed:
		return "The examiner service could not evaluate this attempt. Your raw score is unaffected."
	case ErrResultSaveFailed:
		return "Your result could not be saved, but it remains available in this session."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
