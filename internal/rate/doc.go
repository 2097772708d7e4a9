// Package rate provides Redis-backed fixed-window throttling for challenge
// requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// rl:<scope>:<key>; the engine uses the "user" and "ip" scopes.
//
// # What this package must NOT do
//
//   - Implement suspension policy (the in-process attempt limiter owns that).
//   - Be imported outside the mvauth module.
package rate
