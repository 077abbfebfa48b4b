package goAccount

import "errors"

var (
	// ErrValidation marks malformed or incomplete input. Use errors.As with
	// *ValidationError to read the user-facing message.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity is returned when registering an email that already exists.
	ErrDuplicateIdentity = errors.New("user with this email already exists")
	// ErrInvalidToken is returned for unknown or already used verification tokens.
	ErrInvalidToken = errors.New("invalid verification token")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified is returned when a correct password belongs to an
	// unverified account.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrOTPNotFound is returned when no passcode is outstanding for the user.
	ErrOTPNotFound = errors.New("could not find user or otp request")
	// ErrInvalidOrExpiredOTP is returned for a wrong or expired passcode.
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	// ErrLoginSequence is returned when a passcode is submitted on a session
	// that is not waiting for one.
	ErrLoginSequence = errors.New("invalid login sequence")
	// ErrUserNotFound is returned by profile operations for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnauthorized is returned when a protected operation runs without an
	// authenticated session.
	ErrUnauthorized = errors.New("not authorized")

	// ErrDataCorruption is an internal fault: a stored PII field failed to decrypt.
	ErrDataCorruption = errors.New("stored data corrupt")
	// ErrMailDelivery is an internal fault: an email could not be sent.
	ErrMailDelivery = errors.New("could not send email")
	// ErrStoreUnavailable is an internal fault in the user store.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrSessionUnavailable is an internal fault in the session store.
	ErrSessionUnavailable = errors.New("session store unavailable")

	// ErrRecordNotFound is returned by [UserStore] implementations when no
	// record matches. The engine never returns it to callers.
	ErrRecordNotFound = errors.New("record not found")
)

// ValidationError carries a message safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
