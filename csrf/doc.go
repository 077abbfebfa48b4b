// Package csrf implements the synchronizer-token defence against cross-site
// request forgery.
//
// Each session is bound to one random token, generated lazily the first time it
// is needed. State-changing requests must echo that token in a request header
// (X-CSRF-Token by default). Safe methods (GET, HEAD, OPTIONS) are never checked.
//
// Token storage is delegated to a [TokenStore]; this package does not know how
// sessions are persisted.
package csrf
