package middleware

import (
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

// CookieOptions describe the session cookie.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// CookieOptionsFor derives cookie settings from the engine configuration:
// production cookies are Secure with SameSite=None, development cookies use
// Lax.
func CookieOptionsFor(engine *goAccount.Engine) CookieOptions {
	cfg := engine.Config()
	opts := CookieOptions{
		Name:     cfg.Session.CookieName,
		Path:     "/",
		MaxAge:   engine.SessionLifetime(),
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Production() {
		opts.Secure = true
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts
}

// Set writes value as the session cookie.
func (o CookieOptions) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   int(o.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

// Clear expires the session cookie on the client.
func (o CookieOptions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

// Sessions attaches the caller's session id to the request context. A
// missing, tampered, foreign or expired cookie is replaced by a new anonymous
// session.
func Sessions(engine *goAccount.Engine, cookie CookieOptions) func(http.Handler) http.Handler {
	rs := NewResponder(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sid string
			if c, err := r.Cookie(cookie.Name); err == nil {
				if parsed, err := engine.ParseSessionCookie(c.Value); err == nil {
					sid = parsed
				}
			}

			live, err := engine.SessionExists(ctx, sid)
			if err != nil {
				rs.Fail(w, r, err)
				return
			}
			if !live {
				sess, err := engine.BeginSession(ctx)
				if err != nil {
					rs.Fail(w, r, err)
					return
				}
				value, err := engine.SessionCookie(sess.ID)
				if err != nil {
					rs.Fail(w, r, err)
					return
				}
				cookie.Set(w, value)
				sid = sess.ID
			}

			next.ServeHTTP(w, r.WithContext(goAccount.WithSessionID(ctx, sid)))
		})
	}
}
