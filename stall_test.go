package mvauth

import (
	"testing"
	"time"

	clock "github.com/filecoin-project/go-clock"
)

func TestStallUntilEnforcesFloor(t *testing.T) {
	clk := clock.New()
	const min = 40 * time.Millisecond

	start := clk.Now()
	stallUntil(clk, min, start)

	if elapsed := clk.Since(start); elapsed < min {
		t.Fatalf("returned after %v, below %v floor", elapsed, min)
	}
}

func TestStallUntilZeroDisables(t *testing.T) {
	clk := clock.New()

	start := clk.Now()
	stallUntil(clk, 0, start)
	stallUntil(clk, -time.Second, start)

	if elapsed := clk.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("disabled stall still slept %v", elapsed)
	}
}

func TestStallUntilSkipsWhenElapsed(t *testing.T) {
	clk := clock.New()
	const min = 30 * time.Millisecond

	// Work that already overran the floor must not sleep again.
	start := clk.Now().Add(-2 * min)

	before := clk.Now()
	stallUntil(clk, min, start)

	if elapsed := clk.Since(before); elapsed > 20*time.Millisecond {
		t.Fatalf("overrun operation slept another %v", elapsed)
	}
}
