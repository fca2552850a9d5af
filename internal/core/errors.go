package core

// Error codes for domain errors.
const (
	ErrCodeUserNotFound      = "user_not_found"
	ErrCodeInvalidToken      = "invalid_token"
	ErrCodeInvalidAdminToken = "invalid_admin_token"
	ErrCodeChannelNotFound   = "channel_not_found"
	ErrCodeBadRequest        = "bad_request"
)

var (
	ErrUserNotFound      = coreError(ErrCodeUserNotFound, "username", "User not found")
	ErrInvalidToken      = coreError(ErrCodeInvalidToken, "token", "Invalid token")
	ErrInvalidAdminToken = coreError(ErrCodeInvalidAdminToken, "token", "Invalid admin token")
	ErrChannelNotFound   = coreError(ErrCodeChannelNotFound, "channel", "Channel does not exist")
)

// CoreError wraps a code, the offending request field and a human-readable message.
type CoreError struct {
	Code    string
	Field   string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, field, msg string) *CoreError {
	return &CoreError{Code: code, Field: field, Message: msg}
}
