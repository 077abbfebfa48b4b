// Package goAccount provides the account core of a web application: email
// registration with verification links, a two-step login (password, then an
// emailed one-time passcode) on Redis-backed server-side sessions, CSRF
// synchronizer tokens, and field-level encryption of personal data.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and the [UserStore] and [Mailer] collaborator
// interfaces. Session encoding, CSRF bookkeeping, field encryption, and
// password hashing live in their own packages (session, csrf, pii, password)
// and are wired together only by the Builder.
//
// # Login sequence
//
// A session starts anonymous. [Engine.SubmitPassword] checks the password,
// mails a passcode, and moves the session to OTP pending. [Engine.SubmitOTP]
// accepts the passcode only on a pending session and moves it to
// authenticated. [Engine.Resolve] reports a user only for authenticated
// sessions.
//
// # What this package must NOT do
//
//   - Return password hashes, verification tokens or passcodes to callers.
//   - Log secrets or personal data.
//   - Import the HTTP layer (httpapi and middleware import goAccount, never
//     the other way round).
package goAccount
