package models

import "errors"

// ==============================================
// PREDEFINED ERRORS
// ==============================================

// Registration validation errors. Step 1 reports exactly one of these
// per submission, in check order.
var (
	ErrInvalidEmail          = errors.New("enter a valid email address")
	ErrEmailAlreadyExists    = errors.New("a user with this email already exists")
	ErrUsernameTooShort      = errors.New("username must be at least 3 characters")
	ErrUsernameAlreadyExists = errors.New("a user with this username already exists")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch      = errors.New("passwords do not match")
)

// OTP flow errors.
var (
	ErrNoPendingRegistration = errors.New("registration session expired, please start over")
	ErrOTPExpired            = errors.New("code expired, please request a new one")
	ErrOTPFormat             = errors.New("enter the 6-digit numeric code")
	ErrOTPMismatch           = errors.New("wrong code")
)

// Account errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidResetToken  = errors.New("invalid or expired reset link")
	ErrNotStaff           = errors.New("staff access required")
)

// Board errors.
var (
	ErrAdNotFound        = errors.New("ad not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrResponseNotFound  = errors.New("response not found")
	ErrNotAdOwner        = errors.New("only the ad owner may do this")
	ErrDuplicateResponse = errors.New("you have already responded to this ad")
	ErrMissingFields     = errors.New("please fill in all required fields")
)

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// IsValidationError reports whether err is a step-1 form validation
// failure (recovered locally: the form is redisplayed with a message).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrEmailAlreadyExists) ||
		errors.Is(err, ErrUsernameTooShort) ||
		errors.Is(err, ErrUsernameAlreadyExists) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordMismatch)
}

// IsSessionExpiredError reports whether err means the pending
// registration is gone or stale (recovered by restarting at step 1).
func IsSessionExpiredError(err error) bool {
	return errors.Is(err, ErrNoPendingRegistration) || errors.Is(err, ErrOTPExpired)
}
