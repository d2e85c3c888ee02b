// Package authgate provides a multi-method two-factor authentication
// gateway that sits between primary credential verification and session
// issuance: one-time codes delivered over email or a messaging channel,
// authenticator-app TOTP, shared failure lockout, and trusted-device
// bypass.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. Per-user state (pending challenges, attempt counters,
// trusted-device grants) lives in an ephemeral TTL store and is only ever
// touched through atomic per-key operations; the engine never holds an
// in-process lock across an I/O boundary.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([UserProvider], [CodeSender],
// [SessionIssuer], [PasswordComparer], [AuditSink]) and value types. Code
// generation, TOTP derivation, and at-rest secret encryption live in
// subpackages.
//
// # What this package must NOT do
//
//   - Deliver codes itself. Delivery is a collaborator behind [CodeSender],
//     bounded by a timeout and never retried here.
//   - Persist user accounts. Lookup and profile updates go through
//     [UserProvider].
//   - Treat a store outage as "not found". Security-sensitive reads fail
//     closed with [ErrStoreUnavailable].
package authgate
