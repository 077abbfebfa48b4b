// Package httpapi exposes the account engine over HTTP.
//
// Routes, relative to Options.BasePath:
//
//	POST /auth/register        create an account and mail a verification link
//	GET  /auth/verify-email    consume ?token=
//	POST /auth/login           password step; mails a passcode
//	POST /auth/verify-otp      passcode step; authenticates and reissues the session
//	POST /auth/logout          destroy the session and clear the cookie
//	GET  /csrf-token           the session's synchronizer token
//	GET  /users/profile        authenticated
//	PUT  /users/profile        authenticated, CSRF checked
//	GET  /health
//	GET  /metrics              when a metrics handler is supplied
//
// Every JSON response uses [middleware.Envelope].
package httpapi
