// Package jwt signs and verifies the session cookie value. The cookie carries
// only the opaque session id; everything else lives server side.
package jwt
