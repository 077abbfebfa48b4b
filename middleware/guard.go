package middleware

import (
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

// RequireAuth admits only requests whose session completed both login
// steps and whose user still exists. It must run after [Sessions].
func RequireAuth(engine *goAccount.Engine) func(http.Handler) http.Handler {
	rs := NewResponder(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, ok := goAccount.SessionIDFromContext(r.Context())
			if !ok {
				rs.Fail(w, r, goAccount.ErrUnauthorized)
				return
			}

			userID, ok, err := engine.Resolve(r.Context(), sid)
			if err != nil {
				rs.Fail(w, r, err)
				return
			}
			if !ok {
				rs.Fail(w, r, goAccount.ErrUnauthorized)
				return
			}
			if _, err := engine.User(r.Context(), userID); err != nil {
				if errors.Is(err, goAccount.ErrUserNotFound) {
					rs.FailWith(w, http.StatusUnauthorized, "unauthorized", msgUserGone)
					return
				}
				rs.Fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(goAccount.WithUserID(r.Context(), userID)))
		})
	}
}

// RequireCSRF rejects unsafe requests whose token header does not match the
// session's. It must run after [Sessions].
func RequireCSRF(engine *goAccount.Engine) func(http.Handler) http.Handler {
	rs := NewResponder(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, _ := goAccount.SessionIDFromContext(r.Context())
			if err := engine.ValidateCSRF(r, sid); err != nil {
				rs.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
