package goAccount

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goAccount/csrf"
	"github.com/MrEthical07/goAccount/session"
)

// BeginSession issues a new anonymous session.
func (e *Engine) BeginSession(ctx context.Context) (*session.Session, error) {
	sess, err := e.sessions.Begin(ctx)
	if err != nil {
		return nil, e.sessionFault(ctx, "begin_session", err)
	}
	e.metricInc(MetricSessionCreated)
	return sess, nil
}

// SessionExists reports whether sessionID names a live session.
func (e *Engine) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	_, err := e.sessions.State(ctx, sessionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, session.ErrNotFound):
		return false, nil
	default:
		return false, e.sessionFault(ctx, "session_exists", err)
	}
}

// Resolve returns the authenticated user id of a session. Anything short of a
// completed login resolves to absent.
func (e *Engine) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	userID, ok, err := e.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return "", false, e.sessionFault(ctx, "resolve", err)
	}
	return userID, ok, nil
}

// RotateSession moves a session to a fresh id and returns it. Call it once a
// login completes so an id planted before authentication stops working; the
// caller must hand the new id to the client.
func (e *Engine) RotateSession(ctx context.Context, sessionID string) (string, error) {
	newID, err := e.sessions.Rotate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", e.sessionFault(ctx, "rotate_session", err)
	}
	return newID, nil
}

// SessionState returns the login state of a session.
func (e *Engine) SessionState(ctx context.Context, sessionID string) (session.State, error) {
	st, err := e.sessions.State(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.State{}, ErrUnauthorized
		}
		return session.State{}, e.sessionFault(ctx, "session_state", err)
	}
	return st, nil
}

// SessionLifetime is the absolute lifetime of new sessions.
func (e *Engine) SessionLifetime() time.Duration {
	return e.sessions.Lifetime()
}

// SessionCookie returns the signed cookie value for sessionID.
func (e *Engine) SessionCookie(sessionID string) (string, error) {
	return e.cookies.Sign(sessionID)
}

// ParseSessionCookie returns the session id named by a cookie value.
// Tampered, foreign and expired values all fail.
func (e *Engine) ParseSessionCookie(value string) (string, error) {
	return e.cookies.Parse(value)
}

// CSRFToken returns the session's synchronizer token, creating it on first
// use.
func (e *Engine) CSRFToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrUnauthorized
	}
	token, err := e.csrf.Ensure(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", e.sessionFault(ctx, "csrf_token", err)
	}
	return token, nil
}

// ValidateCSRF checks the token carried by r against the session's. Safe
// methods always pass, as does everything when enforcement is off.
func (e *Engine) ValidateCSRF(r *http.Request, sessionID string) error {
	err := e.csrf.ValidateRequest(r, sessionID)
	if err == nil {
		return nil
	}
	if errors.Is(err, csrf.ErrValidationFailed) {
		e.metricInc(MetricCSRFRejected)
		return err
	}
	return e.sessionFault(r.Context(), "validate_csrf", err)
}

// CSRFHeader names the request header that carries the token.
func (e *Engine) CSRFHeader() string {
	return e.csrf.Header()
}

// csrfTokens adapts the session authority to csrf.TokenStore, reading a
// missing session as one without a token.
type csrfTokens struct {
	sessions *session.Authority
}

func (c csrfTokens) CSRFToken(ctx context.Context, sessionID string) (string, error) {
	token, err := c.sessions.CSRFToken(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", nil
	}
	return token, err
}

func (c csrfTokens) BindCSRFToken(ctx context.Context, sessionID, token string) (string, error) {
	return c.sessions.BindCSRFToken(ctx, sessionID, token)
}
