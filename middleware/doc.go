// Package middleware adapts the account engine to net/http.
//
// # Chain
//
//   - [SecureHeaders] and [CORS] wrap every response.
//   - [Sessions] resolves the signed session cookie, issuing a fresh anonymous
//     session when it is missing, tampered or expired.
//   - [RequireAuth] lets only authenticated sessions through and attaches
//     the user id to the request context.
//   - [RequireCSRF] checks the synchronizer token on unsafe methods.
//
// Failures are written through [Responder] in the JSON envelope shared with
// the handlers in httpapi.
//
// # Architecture boundaries
//
// Decisions stay in the engine. This package reads cookies, calls the
// engine and translates its errors into HTTP statuses.
//
// # What this package must NOT do
//
//   - Touch Redis or the user store directly.
//   - Put passcodes, tokens or decrypted PII in logs or error bodies.
package middleware
