package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal"
)

// ErrStateConflict is returned when a transition's precondition does not hold
// for the stored state.
var ErrStateConflict = errors.New("session state conflict")

// Authority issues sessions and performs the login-sequence transitions on
// them. Every transition is persisted before it returns.
type Authority struct {
	store    *Store
	lifetime time.Duration
	now      func() time.Time
}

// NewAuthority returns an Authority whose sessions live for lifetime.
func NewAuthority(store *Store, lifetime time.Duration) *Authority {
	return &Authority{store: store, lifetime: lifetime, now: time.Now}
}

// Lifetime is the fixed lifetime of newly issued sessions.
func (a *Authority) Lifetime() time.Duration {
	return a.lifetime
}

// Begin issues a new anonymous session.
func (a *Authority) Begin(ctx context.Context) (*Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := a.now()
	sess := &Session{
		ID:        sid.String(),
		State:     Anonymous(),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(a.lifetime).Unix(),
	}
	if err := a.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load returns the stored session or [ErrNotFound].
func (a *Authority) Load(ctx context.Context, sessionID string) (*Session, error) {
	return a.store.Get(ctx, sessionID)
}

// BeginOTPChallenge moves the session to OTP pending for userID, replacing
// whatever state it held.
func (a *Authority) BeginOTPChallenge(ctx context.Context, sessionID, userID string) error {
	if userID == "" {
		return ErrStateConflict
	}
	_, err := a.store.Update(ctx, sessionID, func(s *Session) error {
		s.State = Pending(userID)
		return nil
	})
	return err
}

// CompleteAuthentication moves an OTP-pending session for userID to
// authenticated. Any other stored state yields [ErrStateConflict].
func (a *Authority) CompleteAuthentication(ctx context.Context, sessionID, userID string) error {
	_, err := a.store.Update(ctx, sessionID, func(s *Session) error {
		pending, ok := s.State.PendingUserID()
		if !ok || pending != userID {
			return Abort(ErrStateConflict)
		}
		s.State = Authenticated(userID)
		return nil
	})
	return err
}

// Rotate reissues the session under a fresh id and returns it. State, CSRF
// token and expiry carry over; the old id resolves to absent afterwards.
func (a *Authority) Rotate(ctx context.Context, sessionID string) (string, error) {
	for i := 0; i < maxUpdateRetries; i++ {
		sid, err := internal.NewSessionID()
		if err != nil {
			return "", err
		}
		err = a.store.Rename(ctx, sessionID, sid.String())
		if errors.Is(err, errIDTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return sid.String(), nil
	}
	return "", ErrContended
}

// Resolve returns the authenticated user of a session. Unknown, expired,
// anonymous and pending sessions all resolve to absent.
func (a *Authority) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	userID, ok := sess.State.UserID()
	return userID, ok, nil
}

// Destroy deletes the session. It is idempotent.
func (a *Authority) Destroy(ctx context.Context, sessionID string) error {
	return a.store.Delete(ctx, sessionID)
}

// CSRFToken returns the token bound to the session, or "" when none is bound.
func (a *Authority) CSRFToken(ctx context.Context, sessionID string) (string, error) {
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.CSRFToken, nil
}

// BindCSRFToken binds token unless the session already carries one, and
// returns the token in effect afterwards.
func (a *Authority) BindCSRFToken(ctx context.Context, sessionID, token string) (string, error) {
	var current string
	_, err := a.store.Update(ctx, sessionID, func(s *Session) error {
		if s.CSRFToken == "" {
			s.CSRFToken = token
		}
		current = s.CSRFToken
		return nil
	})
	if err != nil {
		return "", err
	}
	return current, nil
}

// State returns the stored login state, or [ErrNotFound].
func (a *Authority) State(ctx context.Context, sessionID string) (State, error) {
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	return sess.State, nil
}
