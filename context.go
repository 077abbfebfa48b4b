package goAccount

import "context"

type sessionIDContextKey struct{}
type userIDContextKey struct{}

// WithSessionID attaches the caller's session id to ctx. The HTTP layer sets
// it once the session cookie has been verified.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, sessionID)
}

// SessionIDFromContext returns the session id attached by [WithSessionID].
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	sid, _ := ctx.Value(sessionIDContextKey{}).(string)
	return sid, sid != ""
}

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the user id attached by [WithUserID]. It is only
// present behind an authentication guard.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	uid, _ := ctx.Value(userIDContextKey{}).(string)
	return uid, uid != ""
}
