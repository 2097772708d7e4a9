package mvauth

import "sync"

// attemptLimiter counts consecutive login attempts per user. State is
// process-local and deliberately ephemeral: a restart forgives all counters.
// The ceiling is passed per call because it is read from SettingsReader at
// login time and may change between requests.
type attemptLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newAttemptLimiter() *attemptLimiter {
	return &attemptLimiter{
		counts: make(map[string]int),
	}
}

// Consume records one attempt for userID and returns ErrAttemptsExceeded
// when the incremented count reaches or exceeds limit. A limit of zero or
// less disables counting entirely.
func (l *attemptLimiter) Consume(userID string, limit int) error {
	if limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.counts[userID] + 1
	l.counts[userID] = n

	if n >= limit {
		return ErrAttemptsExceeded
	}
	return nil
}

// Reset zeroes the counter for userID.
func (l *attemptLimiter) Reset(userID string) {
	l.mu.Lock()
	delete(l.counts, userID)
	l.mu.Unlock()
}

// Attempts returns the current counter for userID.
func (l *attemptLimiter) Attempts(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[userID]
}
