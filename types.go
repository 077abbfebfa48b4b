package goAccount

import (
	"context"
	"time"
)

// User is a decrypted account as seen inside the process. It never carries
// the password hash or one-time secrets.
type User struct {
	ID            string
	Email         string
	Name          string
	Phone         string
	DOB           string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the readable subset of a [User].
type Profile struct {
	Name          string
	Email         string
	Phone         string
	DOB           string
	EmailVerified bool
}

// RegisterRequest is the input to [Engine.Register]. All fields are required.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	DOB      string
}

// ProfileUpdate lists profile fields to change. Blank fields are left as is.
type ProfileUpdate struct {
	Name  string
	Phone string
	DOB   string
}

// Result is the outcome of an operation that only reports a message.
type Result struct {
	Message string
}

// UserRecord is the at-rest shape exchanged with a [UserStore]. Name, Phone
// and DOB hold ciphertext; VerificationTokenHash and OTPHash hold SHA-256 hex
// digests of the raw secrets. A zero OTPExpiresAt means no passcode is
// outstanding.
type UserRecord struct {
	ID                    string
	Email                 string
	PasswordHash          string
	Name                  string
	Phone                 string
	DOB                   string
	EmailVerified         bool
	VerificationTokenHash string
	OTPHash               string
	OTPExpiresAt          time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ProfilePatch carries ciphertext for the profile fields being replaced. Nil
// fields are left untouched.
type ProfilePatch struct {
	Name  *string
	Phone *string
	DOB   *string
}

// UserStore persists [UserRecord] values. Implementations must make every
// method all-or-nothing for the record it touches and must be safe for
// concurrent use. Lookups that match nothing return [ErrRecordNotFound].
type UserStore interface {
	// Create inserts rec, returning ErrDuplicateIdentity when the email is taken.
	Create(ctx context.Context, rec UserRecord) error
	// Delete removes a record. It is used only to undo a registration whose
	// verification email could not be sent.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	// ConsumeVerificationToken marks the owner of tokenHash verified and
	// clears the token in one write, returning the updated record.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (UserRecord, error)
	// SetOTP replaces any outstanding passcode for the user.
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// ClearOTP clears the passcode only if it still equals otpHash and reports
	// whether it did.
	ClearOTP(ctx context.Context, id, otpHash string) (bool, error)
	// UpdateProfile applies patch and returns the updated record.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch, now time.Time) (UserRecord, error)
	// SetPasswordHash replaces the stored hash after a rehash on login.
	SetPasswordHash(ctx context.Context, id, hash string, now time.Time) error
}

// Mailer delivers account email. Implementations render their own content.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
	SendOTP(ctx context.Context, to, otp string, validFor time.Duration) error
}
