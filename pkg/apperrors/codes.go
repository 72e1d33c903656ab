package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// System errors.
	CodeInternalError  ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	CodeTransportError ErrorCode = "TRANSPORT_ERROR"

	// Business errors.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"

	// Authentication and authorization.
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	// Real-time delivery failed after successful persistence. Never
	// surfaced as an HTTP status; the stored row stays authoritative.
	CodeTransientPush ErrorCode = "TRANSIENT_PUSH"
)
