package session

import "fmt"

// Kind tags the variant held by a [State].
type Kind uint8

const (
	KindAnonymous Kind = iota
	KindOTPPending
	KindAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindOTPPending:
		return "otp_pending"
	case KindAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// State is the authentication state of a session. The zero value is anonymous.
type State struct {
	kind   Kind
	userID string
}

// Anonymous returns the unauthenticated state.
func Anonymous() State {
	return State{kind: KindAnonymous}
}

// Pending returns the state in which tempUserID passed the password check and
// owes a one-time passcode.
func Pending(tempUserID string) State {
	return State{kind: KindOTPPending, userID: tempUserID}
}

// Authenticated returns the signed-in state for userID.
func Authenticated(userID string) State {
	return State{kind: KindAuthenticated, userID: userID}
}

func (s State) Kind() Kind {
	return s.kind
}

// PendingUserID returns the user awaiting a passcode, if any.
func (s State) PendingUserID() (string, bool) {
	if s.kind != KindOTPPending {
		return "", false
	}
	return s.userID, true
}

// UserID returns the authenticated user, if any.
func (s State) UserID() (string, bool) {
	if s.kind != KindAuthenticated {
		return "", false
	}
	return s.userID, true
}

func (s State) valid() bool {
	switch s.kind {
	case KindAnonymous:
		return s.userID == ""
	case KindOTPPending, KindAuthenticated:
		return s.userID != ""
	default:
		return false
	}
}

// Session is a server-side session. CreatedAt and ExpiresAt are unix seconds.
type Session struct {
	ID        string
	State     State
	CSRFToken string
	CreatedAt int64
	ExpiresAt int64
}
