// Package internal contains helper utilities that are intentionally private
// to mvauth, currently secure random generation for challenge codes and
// refresh tokens.
//
// # What this package must NOT do
//
//   - Export types that appear in the public mvauth API.
//   - Be imported by any package outside the mvauth module.
package internal
