package rate

import "errors"

var (
	// ErrLimited is returned when a scoped key exhausts its window budget.
	ErrLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
