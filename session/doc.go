// Package session provides Redis-backed server-side sessions for the login
// sequence.
//
// # State
//
// A [Session] carries a [State] that is exactly one of anonymous, OTP pending
// (holding the user whose second factor is outstanding), or authenticated
// (holding the signed-in user), plus an independent CSRF token. States are built
// only through [Anonymous], [Pending] and [Authenticated], so a session can never
// name both a pending and an authenticated user.
//
// # Lifetime
//
// Sessions expire at a fixed instant chosen at creation. Writes never extend
// that instant; the Redis TTL is recomputed from it on every save.
//
// # Binary encoding
//
// Values are stored in a compact versioned binary format. Decoding rejects
// unknown versions and internally inconsistent states.
//
// # Architecture boundaries
//
// [Store] owns Redis I/O. [Authority] owns the state transitions the login
// sequence relies on. Neither interprets credentials or HTTP.
package session
