// Package mvauth provides an OTP-based authentication engine with JWT access
// tokens, opaque refresh tokens, Redis-backed verification challenges, and
// single-session semantics.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// mvauth is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (LoginResult, AuditEvent, MetricsSnapshot, etc.). Storage lives
// in the verification and session sub-packages; token generation lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Leak whether an email is registered: Login and RequestChallenge hold
//     every exit path open for the configured stall time.
//
// # Timing contract
//
// Login and RequestChallenge never return before Config.Login.StallTime has
// elapsed, regardless of outcome. All expiry decisions and the stall itself
// read from the injected clock, never from the wall clock directly.
package mvauth
