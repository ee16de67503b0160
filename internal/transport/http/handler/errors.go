package handler

const (
	errInternalServer       = "Internal server error"
	errInvalidRequest       = "Invalid request"
	errDuplicateEmail       = "Email is already registered"
	errInvalidRole          = "Invalid role. Must be one of: COLLECTOR, ARTIST, ADMIN"
	errInvalidCredentials   = "Invalid email or password"
	errLoginFailed          = "Login failed"
	errTokenInvalid         = "Invalid or expired token"
	errInvalidOrExpiredCode = "Invalid or expired reset code"
	errCurrentPasswordWrong = "Current password is incorrect"
	errPasswordTooLong      = "Password must be at most 72 bytes"
	errUserNotFound         = "User not found"

	msgTokenValid      = "Token is valid"
	msgResetRequested  = "If an account exists for that email, a reset code has been sent"
	msgPasswordReset   = "Password has been reset successfully"
	msgPasswordChanged = "Password changed successfully"
	msgUserDeleted     = "User and related data deleted successfully"
)
