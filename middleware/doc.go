// Package middleware exposes HTTP adapters over mvauth.Engine.
//
// [Guard] reads the Authorization header, calls Engine.Validate, and injects
// the validated claims into the request context. [Accountability] copies the
// caller's IP, User-Agent, and Origin into the context so the engine can
// scope challenges and audit records.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
