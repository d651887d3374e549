package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidUserID    = "invalid_user_id"
	ErrCodeInvalidTimeout   = "invalid_timeout"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Resource errors
	ErrCodeNotFound  = "not_found"
	ErrCodeEmptyBank = "empty_bank"

	// Session errors
	ErrCodeNoActiveSession = "no_active_session"
	ErrCodeShuttingDown    = "shutting_down"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError = "internal_error"
)
