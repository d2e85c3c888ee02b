// Package totp implements time-based one-time passwords per RFC 6238 and
// the at-rest protection for the per-user shared secrets.
//
// [Manager] derives and validates codes from a base32-encoded secret with a
// backwards-only drift window: a code for the current 30-second step and
// for the immediately preceding step is accepted, codes from future steps
// never are. Malformed input is rejected before any HMAC work.
//
// [SecretCipher] seals secrets with AES-GCM before they are persisted.
// A failed authentication tag surfaces as [ErrSecretIntegrity], which is a
// data-integrity fault and must never be reported as an invalid code.
package totp
