// Package verification stores one-time login challenges in Redis.
//
// Challenges are never physically deleted on consumption or revocation.
// Both share a single terminal marker (the consumed_at field), so revoked
// and used challenges are indistinguishable afterwards; a retention TTL
// bounds storage. Issue, Verify, and RevokeAll run as Lua scripts so that
// concurrent issuance and revocation for one (ip, user) pair serialize at
// the storage layer.
package verification
