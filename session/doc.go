// Package session provides Redis-backed session persistence keyed by opaque
// refresh token, with compact binary session encoding.
//
// # Single-session model
//
// A user holds at most one live session. [Store.Replace] deletes all prior
// sessions for the user and inserts the new one in a single Lua script, so
// the swap is atomic under concurrent logins.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT interpret JWT tokens or enforce authentication policy; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import mvauth or jwt (no upward imports).
//   - Store access tokens or plaintext secrets beyond the refresh token key.
package session
