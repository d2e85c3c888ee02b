// Package token provides the default session-token issuer used by the
// authgate engine once an authentication flow reaches its final state.
//
// Access tokens are JWTs (HS256 or Ed25519) carrying only the subject,
// issuer, and a random jti; refresh tokens are opaque 256-bit random
// values. Deployments with their own session infrastructure implement the
// engine's SessionIssuer interface instead and never import this package.
package token
