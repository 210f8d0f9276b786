package service

// Error is an expected, client-recoverable failure surfaced verbatim to the
// transport layer as a {code, message} pair. Anything that is not an *Error
// is treated as an internal fault: logged, and masked as INTERNAL_ERROR.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	// ErrEmailInUse: registration with an email that already has an account.
	ErrEmailInUse = &Error{Code: "EMAIL_IN_USE", Message: "Email is already in use"}
	// ErrBusinessRequired: ADMIN registration without a business name.
	ErrBusinessRequired = &Error{Code: "BUSINESS_REQUIRED", Message: "businessName is required for ADMIN role"}
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately undifferentiated.
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	// ErrInvalidRefreshToken: missing, foreign, revoked, or hash-mismatched
	// refresh token. The client must log in again.
	ErrInvalidRefreshToken = &Error{Code: "INVALID_REFRESH_TOKEN", Message: "Refresh token is invalid"}
	// ErrRefreshTokenExpired: the stored expiry has passed.
	ErrRefreshTokenExpired = &Error{Code: "REFRESH_TOKEN_EXPIRED", Message: "Refresh token expired"}
	// ErrTokenNotFound: logout on an absent or foreign token record.
	ErrTokenNotFound = &Error{Code: "TOKEN_NOT_FOUND", Message: "Refresh token not found"}
	// ErrUserNotFound: defensive; the issuance path loads a user that was
	// just authenticated, so this should not occur.
	ErrUserNotFound = &Error{Code: "USER_NOT_FOUND", Message: "User not found"}
)
