// Package internal holds the random-material helpers shared by the
// authgate engine: one-time code generation and hashing, constant-time
// code comparison, and trusted-device token derivation. Nothing here is
// part of the public API.
package internal
