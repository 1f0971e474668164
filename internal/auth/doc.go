// Package auth verifies bearer tokens on the HTTP API.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public key)
// carrying "sub", "roles" and "scopes" claims. Viewers may read state and
// subscribe to telemetry; operators may also move arms.
package auth
