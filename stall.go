package mvauth

import (
	"time"

	clock "github.com/filecoin-project/go-clock"
)

// stallUntil blocks until at least min has elapsed since start, measured on
// clk. A min of zero or less disables the stall. Callers capture start once
// at operation entry so every exit path of an operation observes the same
// floor, success and failure alike.
func stallUntil(clk clock.Clock, min time.Duration, start time.Time) {
	if min <= 0 {
		return
	}

	elapsed := clk.Since(start)
	if elapsed >= min {
		return
	}

	clk.Sleep(min - elapsed)
}
