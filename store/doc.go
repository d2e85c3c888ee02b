// Package store defines the ephemeral keyed storage contract used by the
// authgate engine for one-time codes, attempt counters, pending TOTP
// enrollments, and trusted-device grants.
//
// Two interchangeable implementations are provided: [Redis], backed by a
// go-redis client for production deployments, and [Memory], an in-process
// map with a background expiry sweep for development and tests. The engine
// selects one at build time; business logic never branches on the backing
// store.
//
// All operations are atomic per key. Backend failures surface as
// [ErrUnavailable] and are never reported as a missing key: the engine
// fails closed on security-sensitive reads.
package store
